package router

import (
	stderrors "errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	echoSwagger "github.com/swaggo/echo-swagger"

	"patientrecords/internal/auth"
	"patientrecords/internal/config"
	"patientrecords/internal/errors"
	"patientrecords/internal/handler"
	"patientrecords/internal/metrics"
)

// Handlers groups the HTTP handlers mounted by Register.
type Handlers struct {
	Auth    *handler.AuthHandler
	Patient *handler.PatientHandler
	User    *handler.UserHandler
	Seed    *handler.SeedHandler
}

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	log *logrus.Logger,
	jwtService *auth.JWTService,
	tokens auth.TokenStoreInterface,
	h Handlers,
) {
	entry := log.WithField("component", "http")

	e.HideBanner = true
	e.HTTPErrorHandler = ErrorHandler(entry)
	e.Validator = NewCustomValidator()

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogRequestID: true,
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"request_id": v.RequestID,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
			}
			if v.Error != nil && v.Status >= http.StatusInternalServerError {
				entry.WithFields(fields).WithError(v.Error).Error("request failed")
				return nil
			}
			entry.WithFields(fields).Info("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(metrics.Middleware())

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)

	// Secured routes (require JWT authentication); each route names the operation it performs
	secured := api.Group("", auth.JWTMiddleware(jwtService), auth.Authenticate(tokens, log))

	secured.POST("/auth/logout", h.Auth.Logout, auth.RequireOperation(auth.OpLogout))
	secured.GET("/auth/profile", h.Auth.Profile, auth.RequireOperation(auth.OpViewProfile))

	secured.GET("/patients", h.Patient.ListPatients, auth.RequireOperation(auth.OpListPatients))
	secured.GET("/patients/:id", h.Patient.GetPatient, auth.RequireOperation(auth.OpGetPatient))
	secured.POST("/patients", h.Patient.CreatePatient, auth.RequireOperation(auth.OpCreatePatient))
	secured.PATCH("/patients/:id", h.Patient.UpdatePatient, auth.RequireOperation(auth.OpUpdatePatient))
	secured.DELETE("/patients/:id", h.Patient.DeletePatient, auth.RequireOperation(auth.OpDeletePatient))

	secured.GET("/users", h.User.ListUsers, auth.RequireOperation(auth.OpListUsers))
	secured.POST("/seed", h.Seed.Seed, auth.RequireOperation(auth.OpSeed))
}

// ErrorHandler renders every error as an errors.ErrorResponse.
// Domain errors are mapped by kind; echo's own errors keep their status.
func ErrorHandler(log *logrus.Entry) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := render(err)
		if status >= http.StatusInternalServerError {
			log.WithError(err).WithField("uri", c.Request().RequestURI).Error("internal error")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.WithError(err).Warn("write error response")
		}
	}
}

func render(err error) (int, errors.ErrorResponse) {
	var he *echo.HTTPError
	if stderrors.As(err, &he) {
		switch msg := he.Message.(type) {
		case errors.ErrorResponse:
			return he.Code, msg
		case string:
			return he.Code, errors.ErrorResponse{Error: msg, Code: codeForStatus(he.Code)}
		default:
			return he.Code, errors.ErrorResponse{Error: http.StatusText(he.Code), Code: codeForStatus(he.Code)}
		}
	}
	httpErr := errors.MapErrorToHTTP(err)
	return httpErr.StatusCode, httpErr.ToErrorResponse()
}

func codeForStatus(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "ERROR"
	}
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewCustomValidator reports field names as they appear in JSON.
func NewCustomValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &CustomValidator{validator: v}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return errors.ErrInvalidRequest
	}
	verr := &errors.ValidationError{}
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), message(fe))
	}
	return verr
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "is invalid"
	}
}
