// Пакет nav — состав меню портала по роли пользователя.
package nav

import (
	"github.com/bigkaa/luckytrip/internal/domain/rbac"
	"github.com/bigkaa/luckytrip/internal/session"
)

// Link — пункт меню. LabelKey — ключ перевода в i18n.
type Link struct {
	Path     string `json:"path"`
	LabelKey string `json:"label_key"`
}

// Menu — меню шапки. Account — вход и регистрация для посетителя без сессии.
type Menu struct {
	Public  []Link `json:"public"`
	Member  []Link `json:"member"`
	Admin   []Link `json:"admin"`
	Account []Link `json:"account"`
}

var publicLinks = []Link{
	{Path: "/", LabelKey: "nav.home"},
	{Path: "/about", LabelKey: "nav.about"},
	{Path: "/contact", LabelKey: "nav.contact"},
	{Path: "/sitemap", LabelKey: "nav.sitemap"},
	{Path: "/privacy-policy", LabelKey: "nav.privacy_policy"},
	{Path: "/member/packages", LabelKey: "nav.member_packages"},
	{Path: "/non-member/packages", LabelKey: "nav.non_member_packages"},
}

var memberLinks = []Link{
	{Path: "/dashboard", LabelKey: "nav.dashboard"},
	{Path: "/profile", LabelKey: "nav.profile"},
	{Path: "/lucky-draw", LabelKey: "nav.lucky_draw"},
	{Path: "/live", LabelKey: "nav.live"},
}

var adminLinks = []Link{
	{Path: "/admin/dashboard", LabelKey: "nav.dashboard"},
	{Path: "/admin/users", LabelKey: "nav.admin_users"},
	{Path: "/admin/packages", LabelKey: "nav.admin_packages"},
	{Path: "/admin/payments", LabelKey: "nav.admin_payments"},
	{Path: "/admin/pending", LabelKey: "nav.admin_pending"},
	{Path: "/admin/messages", LabelKey: "nav.admin_messages"},
	{Path: "/admin/profile", LabelKey: "nav.admin_profile"},
}

var accountLinks = []Link{
	{Path: "/login", LabelKey: "nav.login"},
	{Path: "/register", LabelKey: "nav.register"},
}

// Compose возвращает меню для роли. Пустая роль или anonymous — посетитель
// без сессии. Неизвестная роль получает только публичные ссылки.
func Compose(role string) Menu {
	m := Menu{Public: clone(publicLinks)}
	switch {
	case role == "" || role == rbac.RoleAnonymous:
		m.Account = clone(accountLinks)
	case rbac.IsMember(role):
		m.Member = clone(memberLinks)
	case rbac.IsAdmin(role):
		m.Admin = clone(adminLinks)
	}
	return m
}

// ForState строит меню по снимку сессии. Пока сессия загружается,
// меню содержит только публичные ссылки.
func ForState(st session.State) Menu {
	if st.Loading {
		return Menu{Public: clone(publicLinks)}
	}
	return Compose(st.Role())
}

// Links возвращает все ссылки меню по порядку.
func (m Menu) Links() []Link {
	out := make([]Link, 0, len(m.Public)+len(m.Member)+len(m.Admin)+len(m.Account))
	out = append(out, m.Public...)
	out = append(out, m.Member...)
	out = append(out, m.Admin...)
	return append(out, m.Account...)
}

func clone(links []Link) []Link {
	return append([]Link(nil), links...)
}
