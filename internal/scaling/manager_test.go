package scaling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func newTestManager(cfg Config) (*Manager, *time.Time) {
	m := New(cfg, zap.NewNop())
	now := time.Now()
	m.clock = func() time.Time { return now }
	return m, &now
}

func TestDoCaching(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a manager with a 1h cache", t, func() {
		m, now := newTestManager(Config{CacheTTL: time.Hour, PerHostDelay: time.Nanosecond})

		calls := 0
		fetch := func(context.Context) (any, error) {
			calls++
			return "payload", nil
		}

		convey.Convey("When the same key is fetched twice", func() {
			v1, err := m.Do(ctx, "k", "https://a.example/x", fetch)
			convey.So(err, convey.ShouldBeNil)
			v2, err := m.Do(ctx, "k", "https://a.example/x", fetch)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the fetch ran once", func() {
				convey.So(calls, convey.ShouldEqual, 1)
				convey.So(v1, convey.ShouldEqual, "payload")
				convey.So(v2, convey.ShouldEqual, "payload")
			})
		})

		convey.Convey("When the TTL expires", func() {
			_, err := m.Do(ctx, "k", "https://a.example/x", fetch)
			convey.So(err, convey.ShouldBeNil)
			*now = now.Add(2 * time.Hour)
			_, err = m.Do(ctx, "k", "https://a.example/x", fetch)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the expired entry counts as absent", func() {
				convey.So(calls, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When a key is invalidated", func() {
			_, err := m.Do(ctx, "k", "https://a.example/x", fetch)
			convey.So(err, convey.ShouldBeNil)
			m.Invalidate("k")
			_, err = m.Do(ctx, "k", "https://a.example/x", fetch)
			convey.So(err, convey.ShouldBeNil)
			convey.So(calls, convey.ShouldEqual, 2)
		})

		convey.Convey("When the fetch fails", func() {
			boom := errors.New("boom")
			_, err := m.Do(ctx, "bad", "https://a.example/x", func(context.Context) (any, error) {
				return nil, boom
			})
			convey.So(errors.Is(err, boom), convey.ShouldBeTrue)

			convey.Convey("Then nothing was cached", func() {
				_, ok := m.cached("bad")
				convey.So(ok, convey.ShouldBeFalse)
			})
		})
	})
}

func TestBackoff(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a manager with a small backoff cap", t, func() {
		m, _ := newTestManager(Config{
			PerHostDelay: time.Nanosecond,
			BackoffMax:   4 * time.Nanosecond,
		})
		boom := errors.New("down")
		fail := func(context.Context) (any, error) { return nil, boom }

		convey.Convey("When a host keeps failing", func() {
			for i := 0; i < 5; i++ {
				_, _ = m.Do(ctx, "k", "https://flaky.example/x", fail)
			}

			convey.Convey("Then the paced delay doubled up to the cap", func() {
				m.mu.Lock()
				hs := m.hosts["flaky.example"]
				m.mu.Unlock()
				convey.So(hs, convey.ShouldNotBeNil)
				convey.So(hs.fails, convey.ShouldEqual, 5)
				convey.So(hs.delay, convey.ShouldEqual, 4*time.Nanosecond)
			})

			convey.Convey("And a success resets the pace", func() {
				_, err := m.Do(ctx, "ok", "https://flaky.example/x", func(context.Context) (any, error) {
					return "fine", nil
				})
				convey.So(err, convey.ShouldBeNil)

				m.mu.Lock()
				hs := m.hosts["flaky.example"]
				m.mu.Unlock()
				convey.So(hs.fails, convey.ShouldEqual, 0)
				convey.So(hs.delay, convey.ShouldEqual, time.Nanosecond)
				convey.So(hs.lim.Limit(), convey.ShouldEqual, rate.Every(time.Nanosecond))
			})
		})
	})
}

func TestAdmit(t *testing.T) {
	convey.Convey("Given a single-slot admission gate", t, func() {
		m, _ := newTestManager(Config{MaxInFlight: 1})

		release, err := m.Admit(context.Background())
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When the slot is held, a cancelled waiter gives up", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := m.Admit(ctx)
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the slot is released, the next caller enters", func() {
			release()
			var wg sync.WaitGroup
			wg.Add(1)
			var gotErr error
			go func() {
				defer wg.Done()
				r, err := m.Admit(context.Background())
				gotErr = err
				if err == nil {
					r()
				}
			}()
			wg.Wait()
			convey.So(gotErr, convey.ShouldBeNil)
		})
	})
}
