package router

import (
	"database/sql"
	"net/http"

	_ "pawpal/docs"

	"pawpal/internal/adapters/cdn/cloudinary"
	"pawpal/internal/adapters/push/fcm"
	mem "pawpal/internal/adapters/storage/memory"
	pg "pawpal/internal/adapters/storage/postgres"
	"pawpal/internal/config"
	"pawpal/internal/domain/challenges"
	"pawpal/internal/domain/health"
	"pawpal/internal/domain/messaging"
	"pawpal/internal/domain/notifications"
	"pawpal/internal/domain/outreach"
	"pawpal/internal/domain/pets"
	"pawpal/internal/domain/profiles"
	"pawpal/internal/domain/push"
	"pawpal/internal/domain/reminders"
	"pawpal/internal/domain/reports"
	"pawpal/internal/middleware"
	"pawpal/internal/platform/cache"
	"pawpal/internal/platform/logger"
	"pawpal/internal/ports/auth"
	"pawpal/internal/ports/media"
	"pawpal/internal/realtime"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	Config config.Config
	Logger logger.Logger

	// Opcionales; si vienen nil se arman desde Config.
	Uploader   media.Uploader
	PushSender push.Sender
}

// App es el router armado más lo que main necesita correr en segundo plano.
type App struct {
	Handler   http.Handler
	Reminders *reminders.Service
}

type repos struct {
	profiles      profiles.Repository
	pets          pets.Repository
	events        outreach.Repository
	registrations outreach.RegistrationRepository
	messaging     messaging.Repository
	notifications notifications.Repository
	tokens        notifications.TokenRepository
	challenges    challenges.Repository
	health        health.Repository
	reports       reports.Repository
}

func newRepos(db *sql.DB) repos {
	if db != nil {
		return repos{
			profiles:      pg.NewProfilesRepo(db),
			pets:          pg.NewPetsRepo(db),
			events:        pg.NewOutreachEventsRepo(db),
			registrations: pg.NewRegistrationsRepo(db),
			messaging:     pg.NewMessagingRepo(db),
			notifications: pg.NewNotificationsRepo(db),
			tokens:        pg.NewDeviceTokensRepo(db),
			challenges:    pg.NewChallengesRepo(db),
			health:        pg.NewHealthRepo(db),
			reports:       pg.NewReportsRepo(db),
		}
	}
	return repos{
		profiles:      mem.NewProfileRepo(),
		pets:          mem.NewPetRepo(),
		events:        mem.NewOutreachEventRepo(),
		registrations: mem.NewRegistrationRepo(),
		messaging:     mem.NewMessagingRepo(),
		notifications: mem.NewNotificationRepo(),
		tokens:        mem.NewDeviceTokenRepo(),
		challenges:    mem.NewChallengeRepo(),
		health:        mem.NewHealthRepo(),
		reports:       mem.NewReportsRepo(),
	}
}

func NewRouter(opts Options) http.Handler {
	return Build(opts).Handler
}

// Build arma repos, servicios y rutas.
func Build(opts Options) *App {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	cfg := opts.Config

	// Si no te pasan DB explícita, intenta con DB_DSN (para dev/handoff)
	db := opts.DB
	if db == nil && cfg.DBDSN != "" {
		opened, err := pg.Open(cfg.DBDSN)
		if err != nil {
			log.Error("postgres unavailable, falling back to in-memory repos", logger.Fields{"err": err})
		} else {
			db = opened
		}
	}
	rp := newRepos(db)

	c := cache.New(cache.Options{
		StaleTime:  cfg.Cache.StaleTime,
		GCTime:     cfg.Cache.GCTime,
		Retry:      cfg.Cache.Retry,
		RetryDelay: cfg.Cache.RetryDelay,
		Logger:     log,
	})
	hub := realtime.NewHub(log)

	uploader := opts.Uploader
	if uploader == nil {
		uploader = cloudinary.NewClient(cloudinary.Config{
			CloudName: cfg.Cloudinary.CloudName,
			APIKey:    cfg.Cloudinary.APIKey,
			APISecret: cfg.Cloudinary.APISecret,
			Folder:    cfg.Cloudinary.Folder,
		})
	}

	sender := opts.PushSender
	if sender == nil && cfg.Firebase.ServiceAccountJSON != "" {
		client, err := fcm.NewClient(fcm.Config{ServiceAccountJSON: cfg.Firebase.ServiceAccountJSON})
		if err != nil {
			log.Warn("fcm disabled", logger.Fields{"err": err})
		} else {
			sender = client
		}
	}

	// Services por módulo: push antes que notifications, notifications antes que el resto.
	pushSvc := push.NewService(rp.tokens, sender, log)
	var pusher notifications.Pusher
	if cfg.PushOnInsert && sender != nil {
		pusher = pushSvc
	}
	notifSvc := notifications.NewService(rp.notifications, rp.tokens, c, hub, pusher, log)

	profilesSvc := profiles.NewService(rp.profiles, c, cfg.EmailDomain, cfg.AdminUserIDs)
	petsSvc := pets.NewService(rp.pets, c, profilesSvc, uploader)
	outreachSvc := outreach.NewService(rp.events, rp.registrations, c, profilesSvc, notifSvc, hub, uploader)
	messagingSvc := messaging.NewService(rp.messaging, c, profilesSvc, notifSvc, hub)
	challengesSvc := challenges.NewService(rp.challenges, c, profilesSvc, petsSvc, notifSvc, uploader)
	healthSvc := health.NewService(rp.health, c, petsSvc)
	reportsSvc := reports.NewService(rp.reports, c, profilesSvc, notifSvc)
	remindersSvc := reminders.NewService(healthSvc, petsSvc, notifSvc, log)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recover(log))

	r.Use(middleware.AuthContext(opts.AuthVerifier))
	r.Use(profiles.BlockSuspended(profilesSvc))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Get("/realtime", realtime.Handler(hub, c, func(userID string) []realtime.Route {
		return []realtime.Route{
			notifications.RealtimeRoute(userID),
			messaging.RealtimeRoute(userID),
			outreach.RealtimeRoute(userID),
		}
	}, log))

	// Rutas por módulo
	profiles.RegisterRoutes(r, profilesSvc)
	pets.RegisterRoutes(r, petsSvc)
	outreach.RegisterRoutes(r, outreachSvc)
	messaging.RegisterRoutes(r, messagingSvc)
	notifications.RegisterRoutes(r, notifSvc)
	challenges.RegisterRoutes(r, challengesSvc)
	health.RegisterRoutes(r, healthSvc)
	reports.RegisterRoutes(r, reportsSvc)

	// Funciones (webhook de insert + scheduler); solo con la clave de servicio
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireFunctionsKey(cfg.FunctionsSecret))
		push.RegisterRoutes(r, pushSvc)
		reminders.RegisterRoutes(r, remindersSvc)
	})

	return &App{Handler: r, Reminders: remindersSvc}
}
