package main

import (
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	agent "github.com/trask/brave-agent"
	"github.com/trask/brave-agent/agenthttp"
)

type app struct {
	log     logrus.FieldLogger
	client  *http.Client
	backend string
}

func newMux(a *agent.Agent, log logrus.FieldLogger, selfURL string) *http.ServeMux {
	s := &app{
		log:     log,
		client:  &http.Client{Transport: agenthttp.NewTransport(nil), Timeout: 5 * time.Second},
		backend: selfURL + "/backend",
	}
	middleware := agenthttp.Middleware(a)

	mux := http.NewServeMux()
	mux.Handle("/", middleware(http.HandlerFunc(s.frontend)))
	mux.Handle("/backend", middleware(http.HandlerFunc(s.serveBackend)))
	return mux
}

func (s *app) frontend(w http.ResponseWriter, r *http.Request) {
	tc := agent.ThreadContextFromContext(r.Context())
	if tc == nil {
		http.Error(w, "no transaction", http.StatusInternalServerError)
		return
	}
	if user := r.URL.Query().Get("user"); user != "" {
		tc.SetTransactionUser(user, 100)
	}

	query := tc.StartQuerySpan("SQL", "select * from items", agent.Message("select items"), "jdbc query")
	rows := rand.Intn(5)
	for i := 0; i < rows; i++ {
		query.IncrementCurrentRow()
	}
	query.End()

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, s.backend, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp, err := s.client.Do(req)
	if err != nil {
		tc.SetTransactionError(err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	// The transaction ends when the audit goroutine is done, not when the
	// response is written.
	aux := tc.CreateAuxThreadContext()
	tc.SetTransactionAsync()
	go s.audit(aux, rows)

	fmt.Fprintf(w, "%d items, backend said %s\n", rows, body)
}

func (s *app) audit(aux *agent.AuxThreadContext, rows int) {
	holder := agent.NewHolder()
	span := aux.StartAndMarkAsyncComplete(holder)
	defer span.End()

	time.Sleep(time.Duration(rows) * 10 * time.Millisecond)
	s.log.WithField("rows", rows).Debug("audited")
}

func (s *app) serveBackend(w http.ResponseWriter, r *http.Request) {
	tc := agent.ThreadContextFromContext(r.Context())
	if tc != nil {
		tc.AddTransactionAttribute("backend.version", VERSION)
	}
	fmt.Fprint(w, "ok")
}
