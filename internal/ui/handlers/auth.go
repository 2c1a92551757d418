package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime/types"

	"github.com/bigkaa/luckytrip/internal/auth"
	"github.com/bigkaa/luckytrip/internal/domain/model"
	"github.com/bigkaa/luckytrip/internal/guard"
	uiauth "github.com/bigkaa/luckytrip/internal/ui/auth"
	uimiddleware "github.com/bigkaa/luckytrip/internal/ui/middleware"
	"github.com/bigkaa/luckytrip/internal/ui/pages"
)

// dateLayout — формат поля даты формы (input type=date).
const dateLayout = "2006-01-02"

// AuthHandler — вход, регистрация и выход.
type AuthHandler struct {
	*Base
	logger *slog.Logger
}

// NewAuthHandler создаёт обработчик аутентификации.
func NewAuthHandler(base *Base, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		Base:   base,
		logger: logger.With(slog.String("component", "ui_auth")),
	}
}

// LoginPage — GET /login. Аутентифицированный пользователь перенаправляется
// на домашнюю страницу своей роли.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if h.redirectAuthenticated(w, r) {
		return
	}
	h.render(w, http.StatusOK, pages.PageLogin, h.page(w, r, "page.login.title"), h.logger)
}

// Login — POST /login. Ошибка входа (в том числе 401 backend) показывается
// на той же странице, сессия не меняется.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	rs := uimiddleware.FromContext(r.Context())
	if rs == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	identifier := r.PostFormValue("identifier")
	res := rs.Gateway.Login(r.Context(), identifier, r.PostFormValue("password"))
	if !res.OK {
		d := h.page(w, r, "page.login.title")
		d.Form = map[string]string{"identifier": identifier}
		d.FieldErrors = h.fieldErrors(d.Lang, res.Err)
		d.Notice = h.notice(d.Lang, uiauth.FlashError, res.Notice)
		h.render(w, http.StatusUnprocessableEntity, pages.PageLogin, d, h.logger)
		return
	}

	user := rs.Store().Snapshot().User
	h.logger.Info("Пользователь вошёл",
		slog.String("user_id", user.ID),
		slog.String("role", user.Role),
	)
	h.redirect(w, r, landingFor(user.Role), &uiauth.Flash{
		Kind: uiauth.FlashInfo,
		Key:  auth.NoticeWelcome,
		Args: []string{user.Name},
	})
}

// RegisterPage — GET /register.
func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	if h.redirectAuthenticated(w, r) {
		return
	}
	h.render(w, http.StatusOK, pages.PageRegister, h.page(w, r, "page.register.title"), h.logger)
}

// Register — POST /register. Поля проверяются до обращения к backend.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	rs := uimiddleware.FromContext(r.Context())
	if rs == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	form := formValues(r, "name", "email", "phone", "city", "address", "dateOfBirth")
	req := model.RegisterRequest{
		Name:            form["name"],
		Email:           form["email"],
		Phone:           form["phone"],
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
		City:            form["city"],
		Address:         form["address"],
	}

	var res auth.Result
	dob, err := parseDate(form["dateOfBirth"])
	if err != nil {
		res = auth.Result{Err: err, Notice: auth.NoticeFor(err)}
	} else {
		req.DateOfBirth = dob
		res = rs.Gateway.Register(r.Context(), req)
	}

	if !res.OK {
		d := h.page(w, r, "page.register.title")
		d.Form = form
		d.FieldErrors = h.fieldErrors(d.Lang, res.Err)
		d.Notice = h.notice(d.Lang, uiauth.FlashError, res.Notice)
		h.render(w, http.StatusUnprocessableEntity, pages.PageRegister, d, h.logger)
		return
	}

	user := rs.Store().Snapshot().User
	h.logger.Info("Зарегистрирован участник", slog.String("user_id", user.ID))
	h.redirect(w, r, landingFor(user.Role), &uiauth.Flash{
		Kind: uiauth.FlashInfo,
		Key:  auth.NoticeWelcome,
		Args: []string{user.Name},
	})
}

// Logout — POST /logout. Сессия очищается даже при ошибке backend.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	rs := uimiddleware.FromContext(r.Context())
	if rs != nil {
		if err := rs.Gateway.Logout(r.Context()); err != nil {
			h.logger.Error("Ошибка очистки сессии", slog.String("error", err.Error()))
		}
	}
	h.redirect(w, r, "/", &uiauth.Flash{Kind: uiauth.FlashInfo, Key: auth.NoticeLoggedOut})
}

// redirectAuthenticated перенаправляет аутентифицированного пользователя
// на домашнюю страницу роли. Пользователь с неизвестной ролью видит форму
// входа. Возвращает true, если ответ отправлен.
func (h *AuthHandler) redirectAuthenticated(w http.ResponseWriter, r *http.Request) bool {
	rs := uimiddleware.FromContext(r.Context())
	if rs == nil {
		return false
	}
	st := rs.Store().Snapshot()
	if st.User == nil {
		return false
	}
	home := guard.HomeFor(st.Role())
	if home == guard.LoginPath {
		return false
	}
	http.Redirect(w, r, home, http.StatusFound)
	return true
}

// landingFor — страница после входа или регистрации. Для неизвестной роли
// домашней страницы нет, и пользователь попадает на главную.
func landingFor(role string) string {
	if home := guard.HomeFor(role); home != guard.LoginPath {
		return home
	}
	return "/"
}

// formValues возвращает обрезанные значения полей формы.
func formValues(r *http.Request, names ...string) map[string]string {
	out := make(map[string]string, len(names))
	for _, n := range names {
		out[n] = strings.TrimSpace(r.PostFormValue(n))
	}
	return out
}

// parseDate разбирает дату формы. Пустое значение — nil.
func parseDate(s string) (*types.Date, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, &auth.ValidationError{
			Field:   "dateOfBirth",
			Key:     "validation.invalid",
			Message: "dateOfBirth is invalid",
		}
	}
	return &types.Date{Time: t}, nil
}
