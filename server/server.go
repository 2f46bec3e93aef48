package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Daskott/phonebook/server/auth"
	"github.com/Daskott/phonebook/server/auth/key"
	"github.com/Daskott/phonebook/server/cron"
	"github.com/Daskott/phonebook/server/gstorage"
	"github.com/Daskott/phonebook/server/logger"
	"github.com/Daskott/phonebook/server/metrics"
	"github.com/Daskott/phonebook/server/models"
	"github.com/Daskott/phonebook/server/views"
	"github.com/Daskott/phonebook/shared"
	"github.com/go-playground/validator"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
)

var logg = logger.NewLogger()

// Options configure a Server.
type Options struct {
	Store             *models.Store
	KeyPair           *key.KeyPair
	URLSigningSecret  string
	SignedURLLifespan time.Duration
	SessionMaxAge     time.Duration
	SecureCookies     bool

	// Registry collects the server's metrics; a new one is created when nil.
	Registry *prometheus.Registry
}

// Server serves the phonebook web application.
type Server struct {
	router        *mux.Router
	store         *models.Store
	keyPair       *key.KeyPair
	signer        *auth.URLSigner
	renderer      *views.Renderer
	validate      *validator.Validate
	metrics       *metrics.Collector
	registry      *prometheus.Registry
	sessionMaxAge time.Duration
	secureCookies bool
}

func New(opts Options) (*Server, error) {
	if opts.Store == nil || opts.KeyPair == nil {
		return nil, errors.New("server: store and key pair are required")
	}
	if opts.URLSigningSecret == "" {
		return nil, errors.New("server: url signing secret is required")
	}

	renderer, err := views.NewRenderer()
	if err != nil {
		return nil, err
	}

	validate, err := NewValidator()
	if err != nil {
		return nil, err
	}

	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	s := &Server{
		store:         opts.Store,
		keyPair:       opts.KeyPair,
		signer:        auth.NewURLSigner(opts.URLSigningSecret, opts.SignedURLLifespan),
		renderer:      renderer,
		validate:      validate,
		metrics:       metrics.NewCollector(registry),
		registry:      registry,
		sessionMaxAge: opts.SessionMaxAge,
		secureCookies: opts.SecureCookies,
	}
	s.routes()

	return s, nil
}

func (s *Server) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(rw, r)
}

func (s *Server) routes() {
	router := mux.NewRouter()
	router.Use(s.loggingMiddleware, s.recoveryMiddleware, securityHeadersMiddleware)

	// Contacts
	router.Handle("/", s.protected(s.index, false)).Methods("GET")
	router.Handle("/add_contact", s.protected(s.addContact, false)).Methods("GET", "POST")
	router.Handle("/edit_person/{person_id:[0-9]+}", s.protected(s.editPerson, true)).Methods("GET", "POST")
	router.Handle("/delete_person/{person_id:[0-9]+}", s.protected(s.deletePerson, true)).Methods("GET", "POST")

	// Phone numbers
	router.Handle("/list_phone/{person_id:[0-9]+}", s.protected(s.listPhone, false)).Methods("GET")
	router.Handle("/add_phone/{person_id:[0-9]+}", s.protected(s.addPhone, false)).Methods("GET", "POST")
	router.Handle("/edit_phone/{person_id:[0-9]+}/{phone_id:[0-9]+}", s.protected(s.editPhone, false)).Methods("GET", "POST")
	router.Handle("/delete_phone/{person_id:[0-9]+}/{phone_id:[0-9]+}", s.protected(s.deletePhone, true)).Methods("GET")

	// Sessions
	router.Handle("/auth/login", s.public(s.logIn)).Methods("GET", "POST")
	router.Handle("/auth/register", s.public(s.register)).Methods("GET", "POST")
	router.Handle("/auth/logout", s.public(s.logOut)).Methods("GET")
	router.HandleFunc("/.well-known/jwks.json", s.jwks).Methods("GET")

	router.Handle("/metrics", metrics.Handler(s.registry)).Methods("GET")

	s.router = router
}

// protected requires a session, then a valid URL signature when signed is
// set, then a session that was not logged out, and runs handler in a
// request transaction.
func (s *Server) protected(handler http.HandlerFunc, signed bool) http.Handler {
	h := s.revocationMiddleware(s.transactionMiddleware(handler))
	if signed {
		h = s.signedURLMiddleware(h)
	}

	return s.sessionMiddleware(h)
}

func (s *Server) public(handler http.HandlerFunc) http.Handler {
	return s.transactionMiddleware(handler)
}

// LoadConfig reads the server config from config and validates it.
func LoadConfig(config *viper.Viper) (*shared.ServerConfig, error) {
	config.SetDefault("phonebook.sessionMaxAgeInMinutes", 24*60)
	config.SetDefault("phonebook.signedURLLifespanInMinutes", 60)
	config.SetDefault("phonebook.cron.timeZone", "UTC")
	config.SetDefault("phonebook.listener.port", 3000)
	config.SetDefault("maintenance.orphanSweepSchedule", defaultOrphanSweepSchedule)
	config.SetDefault("maintenance.revocationPurgeSchedule", defaultRevocationPurgeSchedule)

	// The env var overrides whatever is in the config file
	if err := config.BindEnv("google.applicationCredentials", "GOOGLE_APPLICATION_CREDENTIALS"); err != nil {
		return nil, err
	}

	serverConfig := &shared.ServerConfig{}
	if err := config.Unmarshal(serverConfig); err != nil {
		return nil, fmt.Errorf("unable to decode server config: %v", err)
	}

	if err := validator.New().Struct(serverConfig); err != nil {
		return nil, fmt.Errorf("invalid server config: %v", err)
	}

	return serverConfig, nil
}

// Start runs the phonebook server until it receives SIGINT or SIGTERM.
func Start(config *viper.Viper, devMode bool) {
	ctx := context.Background()

	serverConfig, err := LoadConfig(config)
	fatalOnError(err)

	configDir := configDirectory(devMode)
	storageConfig := serverConfig.Google.Storage

	var backupStorage BackupStorage
	if storageConfig.EnableSqliteBackupAndSync {
		gStorage, err := gstorage.NewGStorage(ctx, serverConfig.Google.ApplicationCredentials)
		fatalOnError(err)
		defer gStorage.Close()

		backupStorage = gStorage
		fatalOnError(restoreSqliteDb(ctx, backupStorage, storageConfig, configDir))
	}

	store, err := models.Open(serverConfig.Sqlite.PassPhrase, configDir)
	fatalOnError(err)
	defer store.Close()

	keyPair, err := key.NewKeyPairFromPEM([]byte(serverConfig.Phonebook.PrivateKeyPem))
	fatalOnError(err)

	srv, err := New(Options{
		Store:             store,
		KeyPair:           keyPair,
		URLSigningSecret:  serverConfig.Phonebook.URLSigningSecret,
		SignedURLLifespan: time.Duration(serverConfig.Phonebook.SignedURLLifespanInMinutes) * time.Minute,
		SessionMaxAge:     time.Duration(serverConfig.Phonebook.SessionMaxAgeInMinutes) * time.Minute,
		SecureCookies:     serverConfig.Phonebook.SecureCookies,
	})
	fatalOnError(err)

	jobs := &maintenance{
		store:         store,
		storage:       backupStorage,
		storageConfig: storageConfig,
		dbRootDir:     configDir,
	}

	scheduler := cron.NewCronScheduler(serverConfig.Phonebook.Cron.TimeZone)
	fatalOnError(jobs.schedule(scheduler, serverConfig.Maintenance))
	scheduler.StartAsync()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%v", serverConfig.Phonebook.Listener.Port),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go serve(httpServer)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	var finalBackup func() error
	if backupStorage != nil {
		finalBackup = jobs.backupSqliteDb
	}
	cleanup(scheduler, httpServer, finalBackup)
}
