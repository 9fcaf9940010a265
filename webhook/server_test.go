package webhook_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alexandre-normand/printqueue"
	"github.com/alexandre-normand/printqueue/config"
	"github.com/alexandre-normand/printqueue/test/capture"
	"github.com/alexandre-normand/printqueue/webhook"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	printersChannel = "C0PRINTERS"
	signingSecret   = "e6b19c573432dcc6b075501d51b51bb8"
	challenge       = "3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P"
)

type fixture struct {
	server *webhook.Server
	poster *capture.MessagePosterCaptor
	bot    *printqueue.Bot
}

func newFixture(t *testing.T, v *viper.Viper) (f fixture) {
	f = newIdleFixture(t, v)

	go f.server.Dispatch()
	t.Cleanup(f.server.Close)

	return f
}

// newIdleFixture returns a fixture whose server isn't dispatching events yet
func newIdleFixture(t *testing.T, v *viper.Viper) (f fixture) {
	var logs strings.Builder
	logger := log.New(&logs, "", 0)

	v.Set(config.ChannelIDKey, printersChannel)

	bot, err := printqueue.NewBot("printqueue", v, printqueue.OptionLog(logger)).
		WithSelfID("U0PRINTQ").
		Build()
	require.Nil(t, err)

	f.bot = bot
	f.poster = capture.NewMessagePoster()
	f.server, err = webhook.New(v, bot, f.poster, bot.Metrics(), printqueue.NewSLogger(logger, true))
	require.Nil(t, err)

	return f
}

type slowHandler struct {
	handled int32
}

func (h *slowHandler) Handle(e printqueue.Event) (reply string, ok bool) {
	time.Sleep(200 * time.Millisecond)
	atomic.AddInt32(&h.handled, 1)

	return "", false
}

func mentionPayload(eventID string, user string, text string) string {
	return fmt.Sprintf(`{"token":"XXYYZZ","team_id":"T0PRINT","api_app_id":"A0PRINT","event":{"type":"app_mention","user":"%s","text":"%s","ts":"1546833210.036900","channel":"%s","event_ts":"1546833210.036900"},"type":"event_callback","event_id":"%s","event_time":1546833210}`, user, text, printersChannel, eventID)
}

func post(f fixture, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(body))
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	rr := httptest.NewRecorder()
	f.server.ServeHTTP(rr, req)

	return rr
}

func sign(body string, secret string, ts time.Time) http.Header {
	timestamp := strconv.FormatInt(ts.Unix(), 10)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("v0:%s:%s", timestamp, body)))

	h := http.Header{}
	h.Set("X-Slack-Request-Timestamp", timestamp)
	h.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))

	return h
}

func TestURLVerification(t *testing.T) {
	f := newFixture(t, config.NewViperWithDefaults())

	rr := post(f, fmt.Sprintf(`{"token":"XXYYZZ","challenge":"%s","type":"url_verification"}`, challenge), nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, challenge, rr.Body.String())
	assert.Equal(t, "text/plain", rr.Header().Get("Content-Type"))
}

func TestMentionIsAnsweredInChannel(t *testing.T) {
	f := newFixture(t, config.NewViperWithDefaults())

	rr := post(f, mentionPayload("Ev0001", "U0ADA", "<@U0PRINTQ> add"), nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = post(f, mentionPayload("Ev0002", "U0BRIAN", "<@U0PRINTQ> add"), nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	assert.Eventually(t, func() bool { return f.poster.Count() == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{
		"Okay <@U0ADA>, I have added you to the queue at position 0",
		"Okay <@U0BRIAN>, I have added you to the queue at position 1",
	}, f.poster.Messages(printersChannel))
}

func TestDuplicateDeliveryIsDropped(t *testing.T) {
	f := newFixture(t, config.NewViperWithDefaults())

	for i := 0; i < 3; i++ {
		rr := post(f, mentionPayload("Ev0001", "U0ADA", "<@U0PRINTQ> add"), nil)
		assert.Equal(t, http.StatusOK, rr.Code)
	}

	assert.Eventually(t, func() bool { return f.poster.Count() == 1 }, time.Second, 10*time.Millisecond)

	// Give the dispatcher a chance to post anything it shouldn't
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, f.poster.Count())
	assert.Len(t, f.bot.Entries(), 1)

	expected := `
# HELP printqueue_events_duplicate_total Total slack event deliveries dropped as duplicates
# TYPE printqueue_events_duplicate_total counter
printqueue_events_duplicate_total 2
`
	assert.Nil(t, testutil.GatherAndCompare(f.bot.Metrics().Registry(), strings.NewReader(expected), "printqueue_events_duplicate_total"))
}

func TestNonCommandMentionIsNotAnswered(t *testing.T) {
	f := newFixture(t, config.NewViperWithDefaults())

	rr := post(f, mentionPayload("Ev0001", "U0ADA", "hello <@U0PRINTQ>"), nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = post(f, mentionPayload("Ev0002", "U0ADA", "<@U0PRINTQ> show"), nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	assert.Eventually(t, func() bool { return f.poster.Count() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"The queue is empty."}, f.poster.Messages(printersChannel))
}

func TestOtherCallbackEventsAreIgnored(t *testing.T) {
	f := newFixture(t, config.NewViperWithDefaults())

	body := `{"token":"XXYYZZ","team_id":"T0PRINT","api_app_id":"A0PRINT","event":{"type":"message","user":"U0ADA","text":"<@U0PRINTQ> add","ts":"1546833210.036900","channel":"C0PRINTERS","event_ts":"1546833210.036900","channel_type":"channel"},"type":"event_callback","event_id":"Ev0003","event_time":1546833210}`
	rr := post(f, body, nil)

	assert.Equal(t, http.StatusOK, rr.Code)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, f.poster.Count())
	assert.Empty(t, f.bot.Entries())
}

func TestInvalidPayload(t *testing.T) {
	f := newFixture(t, config.NewViperWithDefaults())

	rr := post(f, "{not json", nil)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSignedRequest(t *testing.T) {
	v := config.NewViperWithDefaults()
	v.Set(config.SigningSecretKey, signingSecret)
	f := newFixture(t, v)

	body := mentionPayload("Ev0001", "U0ADA", "<@U0PRINTQ> add")
	rr := post(f, body, sign(body, signingSecret, time.Now()))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Eventually(t, func() bool { return f.poster.Count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestRejectedRequests(t *testing.T) {
	body := mentionPayload("Ev0001", "U0ADA", "<@U0PRINTQ> add")

	tests := []struct {
		name   string
		header http.Header
	}{
		{"unsigned", nil},
		{"wrongSecret", sign(body, "not-the-secret", time.Now())},
		{"stale", sign(body, signingSecret, time.Now().Add(-1*time.Hour))},
		{"tamperedBody", sign(strings.Replace(body, "add", "done", 1), signingSecret, time.Now())},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := config.NewViperWithDefaults()
			v.Set(config.SigningSecretKey, signingSecret)
			f := newFixture(t, v)

			rr := post(f, body, tc.header)

			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Empty(t, f.bot.Entries())
		})
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, config.NewViperWithDefaults())

	ts := httptest.NewServer(f.server)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.Nil(t, err)
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	require.Nil(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, config.NewViperWithDefaults())

	post(f, mentionPayload("Ev0001", "U0ADA", "<@U0PRINTQ> add"), nil)
	assert.Eventually(t, func() bool { return f.poster.Count() == 1 }, time.Second, 10*time.Millisecond)

	ts := httptest.NewServer(f.server)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.Nil(t, err)
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	require.Nil(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `printqueue_events_received_total{type="app_mention"} 1`)
	assert.Contains(t, string(body), `printqueue_commands_total{command="add",outcome="added"} 1`)
	assert.Contains(t, string(body), "printqueue_queue_length 1")
}

func TestGetOnEventsPathIsNotAllowed(t *testing.T) {
	f := newFixture(t, config.NewViperWithDefaults())

	req := httptest.NewRequest(http.MethodGet, "/slack/events", nil)
	rr := httptest.NewRecorder()
	f.server.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestRunHandlesReceivedEventsBeforeReturning(t *testing.T) {
	v := config.NewViperWithDefaults()
	v.Set(config.ListenAddressKey, "127.0.0.1:0")

	h := &slowHandler{}
	s, err := webhook.New(v, h, capture.NewMessagePoster(), printqueue.NewMetrics(), printqueue.NewSLogger(log.New(ioutil.Discard, "", 0), false))
	require.Nil(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- s.Run(ctx)
	}()

	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(mentionPayload("Ev0001", "U0ADA", "<@U0PRINTQ> add"))))
	assert.Equal(t, http.StatusOK, rr.Code)

	cancel()

	select {
	case err = <-runErr:
		assert.Nil(t, err)
	case <-time.After(5 * time.Second):
		require.Fail(t, "Run didn't return after its context was cancelled")
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&h.handled))
}

func TestEventNotQueuedIsHandledOnRetry(t *testing.T) {
	v := config.NewViperWithDefaults()
	v.Set(config.DispatchBufferSizeKey, 0)
	f := newIdleFixture(t, v)

	body := mentionPayload("Ev0001", "U0ADA", "<@U0PRINTQ> add")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rr := httptest.NewRecorder()
	f.server.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(body)).WithContext(ctx))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Empty(t, f.bot.Entries())

	go f.server.Dispatch()
	t.Cleanup(f.server.Close)

	rr = post(f, body, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	assert.Eventually(t, func() bool { return f.poster.Count() == 1 }, time.Second, 10*time.Millisecond)
	assert.Len(t, f.bot.Entries(), 1)
}
