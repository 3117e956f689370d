package authgate

import (
	"crypto/tls"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// Server assembles the fiber app: routes, guard, error handler and TLS.
type Server struct {
	app    *fiber.App
	cfg    *Settings
	logger Logger
}

func NewServer(cfg *Settings, store UserStore, tokenizer *Tokenizer, logger Logger) *Server {
	if logger == nil {
		logger = defLogger{}
	}

	app := fiber.New(fiber.Config{
		AppName:               "authgate",
		ErrorHandler:          NewErrorHandler(logger),
		DisableStartupMessage: true,
	})

	guard := NewGuard(tokenizer, store, logger)
	controller := NewUserController(store, tokenizer, WithControllerLogger(logger))
	controller.RegisterRoutes(app, guard)

	// catch-all so unknown routes produce the standard error body
	app.Use(func(c *fiber.Ctx) error {
		return ErrUnknownRoute
	})

	return &Server{
		app:    app,
		cfg:    cfg,
		logger: logger,
	}
}

// App exposes the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving requests until Shutdown.
func (s *Server) Listen() error {
	addr := s.cfg.Addr()

	s.logger.Debug("effective settings: %s", print.MaybePrettyJSON(s.cfg))
	s.logger.Info("listening on %s", addr)

	if s.cfg.SSL != nil && s.cfg.SSL.Enabled {
		cert, err := s.certificate()
		if err != nil {
			return err
		}
		return s.app.ListenTLSWithCertificate(addr, cert)
	}

	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(5 * time.Second)
}

func (s *Server) certificate() (tls.Certificate, error) {
	ssl := s.cfg.SSL

	if ssl.GenerateSelfSigned {
		s.logger.Info("generating self-signed certificate")
		return GenerateSelfSignedCert(s.cfg.Server.Host)
	}

	cert, err := tls.LoadX509KeyPair(ssl.CertFile, ssl.KeyFile)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, errors.CategoryOperation, "error getting ssl certificates").
			WithTextCode(TextCodeConfiguration)
	}

	return cert, nil
}
