package http

import (
	"net/http"
	"time"

	"github.com/cwrk-planet/chat-service/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	httpmw "github.com/cwrk-planet/chat-service/internal/transport/http/middleware"
)

type Deps struct {
	Handler        *Handler
	Tokens         httpmw.TokenVerifier
	WSHandler      http.HandlerFunc // гейтвей реального времени
	UploadsDir     string
	AllowedOrigins []string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(httputil.MiddlewareRequestID)
	r.Use(httputil.MiddlewareLogging)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// health
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	h := d.Handler

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.SignUp)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	// статическая раздача загруженных файлов (аватары, вложения)
	fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(d.UploadsDir)))
	r.Get("/uploads/*", fileServer.ServeHTTP)

	// websocket-гейтвей сам проверяет токен (query, Bearer или cookie) до upgrade-а
	r.Get("/ws", d.WSHandler)

	// всё остальное — только с токеном
	r.Group(func(r chi.Router) {
		r.Use(httpmw.AuthMiddleware(d.Tokens))

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Get("/me", h.Me)
			r.Patch("/me", h.UpdateMe)
			r.Post("/me/avatar", h.UploadAvatar)
			r.Get("/{id}", h.GetUser)
		})

		r.Route("/chats", func(r chi.Router) {
			r.Post("/", h.CreateGroupChat)
			r.Get("/", h.ListMyChats)
			r.Post("/direct", h.CreateDirectChat)
			r.Get("/direct", h.ListDirectChats)
			r.Get("/unjoined", h.ListUnjoinedGroups)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetChat)
				r.Patch("/", h.RenameChat)
				r.Delete("/", h.DeleteChat)
				r.Post("/members", h.AddMembers)
				r.Post("/leave", h.LeaveChat)
				r.Get("/messages", h.GetChatMessages)
			})
		})
	})

	return r
}
