package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/bigkaa/luckytrip/internal/auth"
	"github.com/bigkaa/luckytrip/internal/domain/model"
	uiauth "github.com/bigkaa/luckytrip/internal/ui/auth"
	uimiddleware "github.com/bigkaa/luckytrip/internal/ui/middleware"
	"github.com/bigkaa/luckytrip/internal/ui/pages"
)

// Поверхности участника на backend.
const (
	pathUserDashboard  = "/api/user/dashboard"
	pathUserLiveVideos = "/api/user/live-videos"
)

// MemberHandler — страницы участника: панель, трансляции и профиль.
type MemberHandler struct {
	*Base
	logger *slog.Logger
}

// NewMemberHandler создаёт обработчик страниц участника.
func NewMemberHandler(base *Base, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{
		Base:   base,
		logger: logger.With(slog.String("component", "ui_member")),
	}
}

// Dashboard — GET /dashboard: сводка участника и данные панели backend.
// Ошибка загрузки показывается уведомлением, 401 ведёт на вход.
func (h *MemberHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d := h.page(w, r, "page.dashboard.title")
	if !h.load(w, r, d, pathUserDashboard) {
		return
	}
	h.render(w, http.StatusOK, pages.PageDashboard, d, h.logger)
}

// Live — GET /live: список трансляций розыгрышей.
func (h *MemberHandler) Live(w http.ResponseWriter, r *http.Request) {
	d := h.page(w, r, "page.live.title")
	d.TextKey = "page.live.text"
	if !h.load(w, r, d, pathUserLiveVideos) {
		return
	}
	if d.Table == nil {
		d.Table = &pages.Table{}
	}
	h.render(w, http.StatusOK, pages.PageAdmin, d, h.logger)
}

// load запрашивает path от имени сессии и кладёт таблицу или уведомление в d.
// false — сессия истекла и ответ (redirect) уже отправлен.
func (h *MemberHandler) load(w http.ResponseWriter, r *http.Request, d *pages.Data, path string) bool {
	rs := uimiddleware.FromContext(r.Context())
	resp, err := rs.Gateway.Call(r.Context(), http.MethodGet, path, nil, "")
	if h.sessionExpired(w, r) {
		return false
	}
	if err != nil {
		h.logger.Warn("Не удалось загрузить данные участника",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		d.Notice = h.notice(d.Lang, uiauth.FlashError, auth.NoticeFor(err))
		return true
	}
	d.Table = pages.TableFromJSON(resp.Body)
	return true
}

// Profile — GET /profile: форма профиля, заполненная текущими данными.
func (h *MemberHandler) Profile(w http.ResponseWriter, r *http.Request) {
	d := h.page(w, r, "page.profile.title")
	d.Form = profileForm(d.User)
	h.render(w, http.StatusOK, pages.PageProfile, d, h.logger)
}

// UpdateProfile — POST /profile. Отправляются только изменённые поля;
// очищенные адрес и дата рождения передаются через Clear.
func (h *MemberHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	rs := uimiddleware.FromContext(r.Context())
	form := formValues(r, "name", "email", "phone", "city", "address", "dateOfBirth")
	current := profileForm(rs.Store().Snapshot().User)

	var upd model.ProfileUpdate
	var clearErr error
	changed := func(field string) string {
		if form[field] == current[field] {
			return ""
		}
		if form[field] == "" {
			switch field {
			case model.FieldAddress, model.FieldDateOfBirth:
				upd.Clear = append(upd.Clear, field)
			default:
				if clearErr == nil {
					clearErr = &auth.ValidationError{Field: field, Key: "validation.required", Message: field + " is required"}
				}
			}
		}
		return form[field]
	}
	upd.Name = changed("name")
	upd.Email = changed("email")
	upd.Phone = changed("phone")
	upd.City = changed("city")
	upd.Address = changed(model.FieldAddress)

	var res auth.Result
	dob, err := parseDate(changed(model.FieldDateOfBirth))
	if err == nil {
		err = clearErr
	}
	if err != nil {
		res = auth.Result{Err: err, Notice: auth.NoticeFor(err)}
	} else {
		upd.DateOfBirth = dob
		res = rs.Gateway.UpdateProfile(r.Context(), upd)
	}

	if h.sessionExpired(w, r) {
		return
	}
	if !res.OK {
		d := h.page(w, r, "page.profile.title")
		d.Form = form
		d.FieldErrors = h.fieldErrors(d.Lang, res.Err)
		d.Notice = h.notice(d.Lang, uiauth.FlashError, res.Notice)
		h.render(w, http.StatusUnprocessableEntity, pages.PageProfile, d, h.logger)
		return
	}
	h.redirect(w, r, "/profile", &uiauth.Flash{Kind: uiauth.FlashInfo, Key: res.Notice.Key, Text: res.Notice.Text})
}

// ChangePassword — POST /profile/password.
func (h *MemberHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	rs := uimiddleware.FromContext(r.Context())
	res := rs.Gateway.ChangePassword(r.Context(), model.PasswordChange{
		CurrentPassword: r.PostFormValue("currentPassword"),
		NewPassword:     r.PostFormValue("newPassword"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
	})

	if h.sessionExpired(w, r) {
		return
	}
	if !res.OK {
		d := h.page(w, r, "page.profile.title")
		d.Form = profileForm(d.User)
		d.FieldErrors = h.fieldErrors(d.Lang, res.Err)
		d.Notice = h.notice(d.Lang, uiauth.FlashError, res.Notice)
		h.render(w, http.StatusUnprocessableEntity, pages.PageProfile, d, h.logger)
		return
	}
	h.redirect(w, r, "/profile", &uiauth.Flash{Kind: uiauth.FlashInfo, Key: res.Notice.Key, Text: res.Notice.Text})
}

// profileForm — значения формы профиля из снимка пользователя.
func profileForm(u *model.UserSummary) map[string]string {
	if u == nil {
		return map[string]string{}
	}
	return map[string]string{
		"name":        u.Name,
		"email":       u.Email,
		"phone":       u.Phone,
		"city":        u.City,
		"address":     u.Address,
		"dateOfBirth": strings.TrimSpace(u.BirthDate()),
	}
}
