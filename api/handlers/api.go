package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/RoshiKK/emergency-response-api/api"
	"github.com/RoshiKK/emergency-response-api/api/scheduler"
	"github.com/RoshiKK/emergency-response-api/config"
	"github.com/RoshiKK/emergency-response-api/databases"
	"github.com/RoshiKK/emergency-response-api/models"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router   *mux.Router
	Config   config.Config
	dbHelper databases.DatabaseHelper
	hub      *EventHub
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	sdb := databases.NewSessionDatabase(a.dbHelper)
	udb := databases.NewUserDatabase(a.dbHelper)
	idb := databases.NewIncidentDatabase(a.dbHelper)

	// setup go-guardian for middleware
	m := api.MiddlewareDB{Sessions: sdb, JWTSecret: []byte(a.Config.JWTSecret)}
	m.SetupGoGuardian()

	a.hub = NewEventHub()
	go a.hub.Run()

	mailer := NewMailer(a.Config)

	auth := Auth{UDB: udb, SDB: sdb, Secret: []byte(a.Config.JWTSecret)}
	u := User{DB: udb, Mailer: mailer}
	inc := Incident{DB: idb, Hub: a.hub}
	adm := Admin{IDB: idb, UDB: udb}
	d := Driver{DB: idb, Hub: a.hub}
	h := Hospital{DB: idb, Hub: a.hub}
	up := Upload{Config: a.Config}

	withTimeout := api.TimeoutMiddleware(30 * time.Second)

	r := mux.NewRouter()

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	apiCreate := r.PathPrefix("/api").Subrouter()

	apiCreate.Handle("/auth/login", http.HandlerFunc(auth.LoginHandler)).Methods("POST")
	apiCreate.Handle("/auth/verify", api.Middleware(http.HandlerFunc(auth.VerifyHandler))).Methods("GET")
	apiCreate.Handle("/auth/logout", api.Middleware(http.HandlerFunc(auth.LogoutHandler))).Methods("POST")
	apiCreate.Handle("/auth/me", api.Middleware(http.HandlerFunc(auth.MeHandler))).Methods("GET")
	apiCreate.Handle("/auth/impersonate/{user_id}", api.Middleware(http.HandlerFunc(auth.ImpersonateHandler))).Methods("POST")
	apiCreate.Handle("/auth/return-to-admin", api.Middleware(http.HandlerFunc(auth.ReturnToAdminHandler))).Methods("POST")

	apiCreate.Handle("/users", api.Middleware(http.HandlerFunc(u.UsersHandler))).Methods("GET")
	apiCreate.Handle("/users", api.Middleware(http.HandlerFunc(u.CreateUserHandler))).Methods("POST")
	apiCreate.Handle("/users/{user_id}", api.Middleware(http.HandlerFunc(u.UserByIDHandler))).Methods("GET")
	apiCreate.Handle("/users/{user_id}", api.Middleware(http.HandlerFunc(u.UpdateUserHandler))).Methods("PUT")
	apiCreate.Handle("/users/{user_id}", api.Middleware(http.HandlerFunc(u.DeleteUserHandler))).Methods("DELETE")
	apiCreate.Handle("/users/{user_id}/restrict", api.Middleware(http.HandlerFunc(u.RestrictUserHandler))).Methods("PUT")

	apiCreate.Handle("/admin/dashboard", withTimeout(api.Middleware(http.HandlerFunc(adm.DashboardHandler)))).Methods("GET")
	apiCreate.Handle("/admin/incidents", withTimeout(api.Middleware(http.HandlerFunc(adm.IncidentsHandler)))).Methods("GET")
	apiCreate.Handle("/admin/incidents/bulk-actions", api.Middleware(http.HandlerFunc(adm.BulkActionsHandler))).Methods("POST")

	apiCreate.Handle("/incidents", api.Middleware(http.HandlerFunc(inc.CreateIncidentHandler))).Methods("POST")
	apiCreate.Handle("/incidents/{incident_id}", api.Middleware(http.HandlerFunc(inc.IncidentByIDHandler))).Methods("GET")
	apiCreate.Handle("/incidents/{incident_id}/approve", api.Middleware(http.HandlerFunc(inc.ApproveIncidentHandler))).Methods("PUT")
	apiCreate.Handle("/incidents/{incident_id}/reject", api.Middleware(http.HandlerFunc(inc.RejectIncidentHandler))).Methods("PUT")
	apiCreate.Handle("/incidents/{incident_id}/assign", api.Middleware(http.HandlerFunc(inc.AssignDriverHandler))).Methods("PUT")
	apiCreate.Handle("/incidents/{incident_id}/cancel", api.Middleware(http.HandlerFunc(inc.CancelIncidentHandler))).Methods("PUT")
	apiCreate.Handle("/incidents/{incident_id}/driver-status", api.Middleware(http.HandlerFunc(d.DriverStatusHandler))).Methods("PUT")
	apiCreate.Handle("/incidents/{incident_id}/hospital-status", api.Middleware(http.HandlerFunc(h.HospitalStatusHandler))).Methods("PUT")
	apiCreate.Handle("/incidents/driver/my-incidents", api.Middleware(http.HandlerFunc(d.MyIncidentsHandler))).Methods("GET")
	apiCreate.Handle("/incidents/hospital/incidents", api.Middleware(http.HandlerFunc(h.IncidentsHandler))).Methods("GET")

	apiCreate.Handle("/upload/image/{image_id}", api.Middleware(http.HandlerFunc(up.ImageHandler))).Methods("GET")
	apiCreate.Handle("/upload/signature", api.Middleware(http.HandlerFunc(up.SignatureHandler))).Methods("POST")

	apiCreate.Handle("/events/ws", api.Middleware(http.HandlerFunc(a.hub.ServeWS))).Methods("GET")

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("emergency-response-api has connected to the database")

	// start the background sweeper for expired restrictions and sessions
	s := scheduler.NewScheduler(
		databases.NewUserDatabase(a.dbHelper),
		databases.NewSessionDatabase(a.dbHelper),
	)
	s.Start()

	// initialize api router
	a.initializeRoutes()
	return nil

}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}

// respondJSON writes the uniform success envelope
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}, message string) {
	w.Header().Set("Content-Type", "application/json")
	b, err := json.Marshal(models.APIResponse{Success: true, Data: data, Message: message})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(statusCode)
	w.Write(b)
}
