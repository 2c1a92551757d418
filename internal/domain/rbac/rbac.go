// Пакет rbac — роли участников платформы и правила доступа к маршрутам.
// Роли: user (участник), admin, superadmin. Роль "anonymous" используется
// только в навигации и тестах для посетителя без сессии.
package rbac

// Роли в порядке возрастания привилегий.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// RoleAnonymous — псевдороль посетителя без сессии. Не приходит от backend.
const RoleAnonymous = "anonymous"

// knownRoles — роли, которые выдаёт backend.
var knownRoles = map[string]struct{}{
	RoleUser:       {},
	RoleAdmin:      {},
	RoleSuperAdmin: {},
}

// AllRoles — полное перечисление ролей, включая anonymous.
func AllRoles() []string {
	return []string{RoleUser, RoleAdmin, RoleSuperAdmin, RoleAnonymous}
}

// MemberRoles — роли, допущенные к страницам участника.
func MemberRoles() []string {
	return []string{RoleUser}
}

// AdminRoles — роли, допущенные к административным страницам.
func AdminRoles() []string {
	return []string{RoleAdmin, RoleSuperAdmin}
}

// IsAdmin возвращает true для admin и superadmin.
func IsAdmin(role string) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}

// IsMember возвращает true для обычного участника.
func IsMember(role string) bool {
	return role == RoleUser
}

// Allowed проверяет, входит ли роль в набор allowed.
// Пустой набор означает «любая аутентифицированная роль».
func Allowed(role string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// IsValidRole проверяет, является ли строка допустимой ролью backend.
func IsValidRole(role string) bool {
	_, ok := knownRoles[role]
	return ok
}
