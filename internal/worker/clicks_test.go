package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/shortlink/internal/models"
	"github.com/vadimbarashkov/shortlink/internal/queue"
)

var errUnknown = errors.New("unknown error")

type MockClickConsumer struct {
	mock.Mock
}

func (c *MockClickConsumer) Dequeue(ctx context.Context) (*queue.ClickEvent, error) {
	args := c.Called(ctx)
	ev, _ := args.Get(0).(*queue.ClickEvent)
	return ev, args.Error(1)
}

type MockClickRepository struct {
	mock.Mock
}

func (r *MockClickRepository) Create(ctx context.Context, click *models.Click) (*models.Click, error) {
	args := r.Called(ctx, click)
	created, _ := args.Get(0).(*models.Click)
	return created, args.Error(1)
}

type MockGeoResolver struct {
	mock.Mock
}

func (g *MockGeoResolver) Resolve(ip string) (country, city string) {
	args := g.Called(ip)
	return args.String(0), args.String(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClickWorker_Process(t *testing.T) {
	t.Run("enriches and persists the click", func(t *testing.T) {
		consumer := new(MockClickConsumer)
		clicks := new(MockClickRepository)
		geo := new(MockGeoResolver)
		w := NewClickWorker(consumer, clicks, geo, discardLogger())

		clickedAt := time.Now()
		ev := &queue.ClickEvent{
			Slug:      "abc123",
			IPAddress: "203.0.113.7",
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64; rv:130.0) Gecko/20100101 Firefox/130.0",
			Referer:   "https://news.example.com",
			ClickedAt: clickedAt,
		}

		geo.On("Resolve", "203.0.113.7").Return("Germany", "Berlin").Once()
		clicks.On("Create", mock.Anything, mock.MatchedBy(func(c *models.Click) bool {
			return c.Slug == "abc123" &&
				c.Country == "Germany" &&
				c.City == "Berlin" &&
				c.Device == "Desktop" &&
				c.ClickedAt.Equal(clickedAt)
		})).Return(&models.Click{ID: 1}, nil).Once()

		err := w.process(context.TODO(), ev)

		assert.NoError(t, err)
		geo.AssertExpectations(t)
		clicks.AssertExpectations(t)
	})

	t.Run("works without a geo resolver", func(t *testing.T) {
		consumer := new(MockClickConsumer)
		clicks := new(MockClickRepository)
		w := NewClickWorker(consumer, clicks, nil, discardLogger())

		ev := &queue.ClickEvent{Slug: "abc123", IPAddress: "203.0.113.7"}

		clicks.On("Create", mock.Anything, mock.MatchedBy(func(c *models.Click) bool {
			return c.Slug == "abc123" && c.Country == "" && c.City == ""
		})).Return(&models.Click{ID: 1}, nil).Once()

		err := w.process(context.TODO(), ev)

		assert.NoError(t, err)
		clicks.AssertExpectations(t)
	})

	t.Run("persist failure surfaces", func(t *testing.T) {
		consumer := new(MockClickConsumer)
		clicks := new(MockClickRepository)
		w := NewClickWorker(consumer, clicks, nil, discardLogger())

		clicks.On("Create", mock.Anything, mock.Anything).
			Return(nil, errUnknown).
			Once()

		err := w.process(context.TODO(), &queue.ClickEvent{Slug: "abc123"})

		assert.Error(t, err)
		assert.ErrorIs(t, err, errUnknown)
	})
}

func TestClickWorker_Run(t *testing.T) {
	t.Run("stops on context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		consumer := new(MockClickConsumer)
		clicks := new(MockClickRepository)
		w := NewClickWorker(consumer, clicks, nil, discardLogger())

		consumer.On("Dequeue", mock.Anything).
			Run(func(args mock.Arguments) { cancel() }).
			Return(nil, context.Canceled)

		err := w.Run(ctx)

		assert.NoError(t, err)
	})

	t.Run("persists dequeued events", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		consumer := new(MockClickConsumer)
		clicks := new(MockClickRepository)
		w := NewClickWorker(consumer, clicks, nil, discardLogger())

		ev := &queue.ClickEvent{Slug: "abc123"}

		consumer.On("Dequeue", mock.Anything).Return(ev, nil).Once()
		consumer.On("Dequeue", mock.Anything).
			Run(func(args mock.Arguments) { cancel() }).
			Return(nil, context.Canceled)
		clicks.On("Create", mock.Anything, mock.Anything).
			Return(&models.Click{ID: 1}, nil).
			Once()

		err := w.Run(ctx)

		assert.NoError(t, err)
		clicks.AssertExpectations(t)
	})
}

func TestParseUserAgent(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantBrowser string
		wantOS      string
		wantDevice  string
	}{
		{
			name: "empty",
			raw:  "",
		},
		{
			name:        "desktop firefox",
			raw:         "Mozilla/5.0 (X11; Linux x86_64; rv:130.0) Gecko/20100101 Firefox/130.0",
			wantBrowser: "Firefox 130.0",
			wantOS:      "Linux x86_64",
			wantDevice:  "Desktop",
		},
		{
			name:        "mobile safari",
			raw:         "Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Mobile/15E148 Safari/604.1",
			wantBrowser: "Safari 17.5",
			wantOS:      "iOS 17.5",
			wantDevice:  "Mobile",
		},
		{
			name:       "bot",
			raw:        "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
			wantDevice: "Bot",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			browser, os, device := parseUserAgent(tt.raw)

			if tt.wantBrowser != "" {
				assert.Equal(t, tt.wantBrowser, browser)
			}
			if tt.wantOS != "" {
				assert.Equal(t, tt.wantOS, os)
			}
			assert.Equal(t, tt.wantDevice, device)
		})
	}
}
