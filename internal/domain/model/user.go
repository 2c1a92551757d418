// Пакет model — доменные модели Member Portal.
package model

import (
	"encoding/json"
	"time"

	"github.com/oapi-codegen/runtime/types"
)

// UserSummary — снимок текущего пользователя, полученный от backend.
// Обновляется повторным запросом /api/auth/me после изменений.
type UserSummary struct {
	// ID — идентификатор пользователя в backend (поле id или _id)
	ID string `json:"id"`
	// Name — отображаемое имя
	Name string `json:"name"`
	// Email — адрес электронной почты
	Email string `json:"email"`
	// Phone — телефон
	Phone string `json:"phone,omitempty"`
	// Role — роль (user, admin, superadmin)
	Role string `json:"role"`
	// IsActive — активен ли аккаунт
	IsActive bool `json:"isActive"`
	// VirtualCardNumber — номер виртуальной карты участника
	VirtualCardNumber string `json:"virtualCardNumber,omitempty"`
	City              string `json:"city,omitempty"`
	Address           string `json:"address,omitempty"`
	// DateOfBirth — дата рождения в формате ISO (как отдаёт backend)
	DateOfBirth string `json:"dateOfBirth,omitempty"`
	// MonthsPaid — количество оплаченных месяцев
	MonthsPaid int `json:"monthsPaid"`
	// TotalAmountPaid — сумма всех платежей
	TotalAmountPaid float64 `json:"totalAmountPaid"`
	// CreatedAt — дата регистрации
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// UnmarshalJSON принимает идентификатор как из id, так и из _id.
func (u *UserSummary) UnmarshalJSON(data []byte) error {
	type plain UserSummary
	aux := struct {
		*plain
		MongoID string `json:"_id"`
	}{plain: (*plain)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if u.ID == "" {
		u.ID = aux.MongoID
	}
	return nil
}

// BirthDate возвращает дату рождения без временной части (YYYY-MM-DD).
func (u *UserSummary) BirthDate() string {
	if len(u.DateOfBirth) >= 10 {
		return u.DateOfBirth[:10]
	}
	return u.DateOfBirth
}

// Clone возвращает независимую копию снимка.
func (u *UserSummary) Clone() *UserSummary {
	if u == nil {
		return nil
	}
	c := *u
	if u.CreatedAt != nil {
		t := *u.CreatedAt
		c.CreatedAt = &t
	}
	return &c
}

// Credentials — данные для входа.
type Credentials struct {
	// Identifier — email, телефон или номер карты
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// RegisterRequest — поля регистрации нового участника.
// ConfirmPassword проверяется на клиенте и не отправляется в backend.
type RegisterRequest struct {
	Name            string      `json:"name" validate:"required"`
	Email           string      `json:"email" validate:"required,email"`
	Phone           string      `json:"phone" validate:"required"`
	Password        string      `json:"password" validate:"required"`
	ConfirmPassword string      `json:"-" validate:"required,eqfield=Password"`
	City            string      `json:"city" validate:"required"`
	Address         string      `json:"address,omitempty"`
	DateOfBirth     *types.Date `json:"dateOfBirth,omitempty"`
}

// ProfileUpdate — частичное обновление профиля. Пустые поля не отправляются,
// кроме перечисленных в Clear.
type ProfileUpdate struct {
	Name        string      `json:"name,omitempty"`
	Email       string      `json:"email,omitempty" validate:"omitempty,email"`
	Phone       string      `json:"phone,omitempty"`
	City        string      `json:"city,omitempty"`
	Address     string      `json:"address,omitempty"`
	DateOfBirth *types.Date `json:"dateOfBirth,omitempty"`
	// Clear — необязательные поля, которые нужно очистить:
	// address отправляется пустой строкой, dateOfBirth — null.
	Clear []string `json:"-" validate:"dive,oneof=address dateOfBirth"`
}

// Поля профиля, допускающие очистку.
const (
	FieldAddress     = "address"
	FieldDateOfBirth = "dateOfBirth"
)

// MarshalJSON добавляет к заданным полям очищаемые из Clear.
func (p ProfileUpdate) MarshalJSON() ([]byte, error) {
	type plain ProfileUpdate
	data, err := json.Marshal(plain(p))
	if err != nil || len(p.Clear) == 0 {
		return data, err
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for _, name := range p.Clear {
		switch name {
		case FieldAddress:
			fields[FieldAddress] = ""
		case FieldDateOfBirth:
			fields[FieldDateOfBirth] = nil
		}
	}
	return json.Marshal(fields)
}

// IsEmpty возвращает true, если ни одно поле не задано и не очищается.
func (p ProfileUpdate) IsEmpty() bool {
	return p.Name == "" && p.Email == "" && p.Phone == "" && len(p.Clear) == 0 &&
		p.City == "" && p.Address == "" && p.DateOfBirth == nil
}

// PasswordChange — смена пароля. ConfirmPassword не отправляется в backend.
type PasswordChange struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
	ConfirmPassword string `json:"-" validate:"required,eqfield=NewPassword"`
}

// AuthResponse — ответ login/register.
type AuthResponse struct {
	Token string       `json:"token"`
	User  *UserSummary `json:"user"`
}
