// Пакет guard — решение Route Guard для защищённых маршрутов по снимку
// сессии и набору допустимых ролей.
package guard

import (
	"github.com/bigkaa/luckytrip/internal/domain/rbac"
	"github.com/bigkaa/luckytrip/internal/session"
)

// Outcome — итог проверки доступа.
type Outcome int

const (
	// Loading — сессия ещё не разрешена: показывается нейтральная заглушка.
	Loading Outcome = iota
	// Unauthenticated — пользователя нет, редирект на вход.
	Unauthenticated
	// Authorized — доступ разрешён.
	Authorized
	// Forbidden — роль не входит в допустимые, редирект на домашнюю страницу роли.
	Forbidden
)

// Пути редиректа.
const (
	LoginPath      = "/login"
	MemberHomePath = "/dashboard"
	AdminHomePath  = "/admin/dashboard"
)

func (o Outcome) String() string {
	switch o {
	case Loading:
		return "loading"
	case Unauthenticated:
		return "unauthenticated"
	case Authorized:
		return "authorized"
	case Forbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Rule — правило доступа маршрута. Пустой AllowedRoles — любой
// аутентифицированный пользователь.
type Rule struct {
	AllowedRoles []string
}

// Member — маршруты участника.
func Member() Rule {
	return Rule{AllowedRoles: rbac.MemberRoles()}
}

// Admin — маршруты администратора.
func Admin() Rule {
	return Rule{AllowedRoles: rbac.AdminRoles()}
}

// Authenticated — любой вошедший пользователь.
func Authenticated() Rule {
	return Rule{}
}

// Decision — результат Evaluate. Redirect задан для Unauthenticated и Forbidden.
type Decision struct {
	Outcome  Outcome
	Redirect string
}

// Evaluate определяет доступ по снимку сессии. Чистая функция.
func Evaluate(st session.State, rule Rule) Decision {
	switch {
	case st.Loading:
		return Decision{Outcome: Loading}
	case st.User == nil:
		return Decision{Outcome: Unauthenticated, Redirect: LoginPath}
	case !rbac.Allowed(st.User.Role, rule.AllowedRoles):
		return Decision{Outcome: Forbidden, Redirect: HomeFor(st.User.Role)}
	default:
		return Decision{Outcome: Authorized}
	}
}

// HomeFor возвращает домашнюю страницу роли. Неизвестная роль — страница входа.
func HomeFor(role string) string {
	switch {
	case rbac.IsMember(role):
		return MemberHomePath
	case rbac.IsAdmin(role):
		return AdminHomePath
	default:
		return LoginPath
	}
}
