// session.go — JSON-представление сессии и меню для клиентского кода страниц.
package handlers

import (
	"net/http"

	apierrors "github.com/bigkaa/luckytrip/internal/api/errors"
	"github.com/bigkaa/luckytrip/internal/domain/model"
	"github.com/bigkaa/luckytrip/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/luckytrip/internal/ui/middleware"
	"github.com/bigkaa/luckytrip/internal/ui/nav"
)

// SessionHandler — GET /api/session и GET /api/nav.
type SessionHandler struct {
	bundle *i18n.Bundle
}

// NewSessionHandler создаёт обработчик.
func NewSessionHandler(bundle *i18n.Bundle) *SessionHandler {
	return &SessionHandler{bundle: bundle}
}

// sessionResponse — снимок сессии без токена.
type sessionResponse struct {
	Authenticated bool               `json:"authenticated"`
	Loading       bool               `json:"loading"`
	User          *model.UserSummary `json:"user"`
}

type navLink struct {
	Path     string `json:"path"`
	LabelKey string `json:"label_key"`
	Label    string `json:"label"`
}

type navResponse struct {
	Public  []navLink `json:"public"`
	Member  []navLink `json:"member"`
	Admin   []navLink `json:"admin"`
	Account []navLink `json:"account"`
}

// GetSession возвращает снимок сессии запроса. Токен не раскрывается.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	rs := uimiddleware.FromContext(r.Context())
	if rs == nil {
		apierrors.InternalError(w, "сессия запроса не инициализирована")
		return
	}
	st := rs.Store().Snapshot()
	writeJSON(w, http.StatusOK, sessionResponse{
		Authenticated: st.User != nil,
		Loading:       st.Loading,
		User:          st.User,
	})
}

// GetNav возвращает меню для сессии запроса с переведёнными подписями.
func (h *SessionHandler) GetNav(w http.ResponseWriter, r *http.Request) {
	rs := uimiddleware.FromContext(r.Context())
	if rs == nil {
		apierrors.InternalError(w, "сессия запроса не инициализирована")
		return
	}
	m := nav.ForState(rs.Store().Snapshot())

	translate := func(links []nav.Link) []navLink {
		out := make([]navLink, 0, len(links))
		for _, l := range links {
			out = append(out, navLink{Path: l.Path, LabelKey: l.LabelKey, Label: h.bundle.T(r.Context(), l.LabelKey)})
		}
		return out
	}
	writeJSON(w, http.StatusOK, navResponse{
		Public:  translate(m.Public),
		Member:  translate(m.Member),
		Admin:   translate(m.Admin),
		Account: translate(m.Account),
	})
}
