// Package webhook receives slack Events API deliveries over HTTP and posts the bot's replies back
// to slack. Events are acknowledged right away and handled in order by a single dispatcher
package webhook

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"sync"
	"time"

	"github.com/alexandre-normand/printqueue"
	"github.com/alexandre-normand/printqueue/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/golang-lru"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/spf13/viper"
)

const (
	healthPath      = "/healthz"
	metricsPath     = "/metrics"
	postTimeout     = 10 * time.Second
	shutdownTimeout = 15 * time.Second
)

// EventHandler is implemented by any value that answers events. printqueue.Bot implements it
type EventHandler interface {
	Handle(e printqueue.Event) (reply string, ok bool)
}

// Server serves the slack events endpoint along with health and metrics endpoints
type Server struct {
	handler       EventHandler
	poster        printqueue.MessagePoster
	metrics       *printqueue.Metrics
	logger        printqueue.SLogger
	signingSecret string
	listenAddress string

	seenEvents *lru.Cache
	events     chan printqueue.Event
	closeOnce  sync.Once
	dispatcher sync.WaitGroup

	router chi.Router
}

// New creates a new Server. Requests are verified with config.SigningSecretKey unless it's empty
func New(v *viper.Viper, handler EventHandler, poster printqueue.MessagePoster, metrics *printqueue.Metrics, logger printqueue.SLogger) (s *Server, err error) {
	s = new(Server)
	s.handler = handler
	s.poster = poster
	s.metrics = metrics
	s.logger = logger
	s.signingSecret = v.GetString(config.SigningSecretKey)
	s.listenAddress = v.GetString(config.ListenAddressKey)
	s.events = make(chan printqueue.Event, v.GetInt(config.DispatchBufferSizeKey))

	s.seenEvents, err = lru.New(v.GetInt(config.EventDedupCacheSizeKey))
	if err != nil {
		return nil, err
	}

	if s.signingSecret == "" {
		logger.Printf("No value for [%s], slack requests won't be verified\n", config.SigningSecretKey)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post(v.GetString(config.EventsPathKey), s.handleEvents)
	r.Get(healthPath, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, metricsPath, promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))

	s.router = r

	return s, nil
}

// ServeHTTP routes the request
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run starts the dispatcher and serves until the context is done. It then stops accepting
// requests and returns once the dispatcher is done with events already received
func (s *Server) Run(ctx context.Context) (err error) {
	s.dispatcher.Add(1)
	go func() {
		defer s.dispatcher.Done()
		s.Dispatch()
	}()

	hs := &http.Server{
		Addr:              s.listenAddress,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("Listening for slack events on [%s]\n", s.listenAddress)
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err = <-errCh:
		s.drain()
		return err
	case <-ctx.Done():
	}

	s.logger.Printf("Shutting down\n")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err = hs.Shutdown(shutdownCtx); err != nil {
		return err
	}

	s.drain()

	return nil
}

// drain closes the events channel and waits for the dispatcher started by Run to handle what's left
func (s *Server) drain() {
	s.Close()
	s.dispatcher.Wait()
}

// Dispatch handles received events one at a time and posts replies until Close is called
func (s *Server) Dispatch() {
	for e := range s.events {
		s.dispatch(e)
	}
}

// Close stops the dispatcher once pending events are handled. No request may be served after Close
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.events)
	})
}

func (s *Server) dispatch(e printqueue.Event) {
	reply, ok := s.handler.Handle(e)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), postTimeout)
	defer cancel()

	if err := printqueue.Say(ctx, s.poster, e.Channel, reply); err != nil {
		s.logger.Printf("Error posting reply to [%s] for message [%s]: %v\n", e.Channel, e.TimeStamp, err)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if !s.verify(r.Header, body) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		s.logger.Printf("Error parsing slack event: %v\n", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		s.metrics.CountEvent(event.Type)

		var cr slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &cr); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(cr.Challenge))
	case slackevents.CallbackEvent:
		s.metrics.CountEvent(event.InnerEvent.Type)

		if cb, ok := event.Data.(*slackevents.EventsAPICallbackEvent); ok && s.isDuplicate(cb.EventID) {
			s.logger.Debugf("Dropping duplicate delivery of event [%s]\n", cb.EventID)
			s.metrics.CountDuplicateEvent()
			w.WriteHeader(http.StatusOK)
			return
		}

		if ev, ok := event.InnerEvent.Data.(*slackevents.AppMentionEvent); ok {
			queued := s.enqueue(r.Context(), printqueue.Event{
				Type:      printqueue.AppMentionEvent,
				User:      ev.User,
				Text:      ev.Text,
				Channel:   ev.Channel,
				BotID:     ev.BotID,
				TimeStamp: ev.TimeStamp,
			})

			// Forget the event id so that slack's retry of it gets handled
			if !queued {
				if cb, ok := event.Data.(*slackevents.EventsAPICallbackEvent); ok {
					s.seenEvents.Remove(cb.EventID)
				}
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
	default:
		s.metrics.CountEvent(event.Type)
		s.logger.Debugf("Ignoring slack event of type [%s]\n", event.Type)
		w.WriteHeader(http.StatusOK)
	}
}

// verify checks the slack signature of the request. Verification passes when no signing secret is set
func (s *Server) verify(header http.Header, body []byte) bool {
	if s.signingSecret == "" {
		return true
	}

	sv, err := slack.NewSecretsVerifier(header, s.signingSecret)
	if err != nil {
		s.logger.Printf("Error reading slack signature headers: %v\n", err)
		return false
	}

	if _, err = sv.Write(body); err != nil {
		return false
	}

	if err = sv.Ensure(); err != nil {
		s.logger.Printf("Rejecting request with invalid slack signature: %v\n", err)
		return false
	}

	return true
}

// isDuplicate returns true if the event id was already received and records it otherwise
func (s *Server) isDuplicate(eventID string) bool {
	if eventID == "" {
		return false
	}

	seen, _ := s.seenEvents.ContainsOrAdd(eventID, true)
	return seen
}

// enqueue returns false if the request ended before the event could be queued
func (s *Server) enqueue(ctx context.Context, e printqueue.Event) bool {
	select {
	case s.events <- e:
		return true
	case <-ctx.Done():
		s.logger.Printf("Dropping event from [%s] in [%s], request ended before it could be queued\n", e.User, e.Channel)
		return false
	}
}
