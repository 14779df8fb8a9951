package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/okian/pumpmatch/internal/adapters/repository"
	"github.com/okian/pumpmatch/internal/domain/curve"
	"github.com/okian/pumpmatch/internal/domain/pump"
	. "github.com/smartystreets/goconvey/convey"
)

func newStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()
	s, err := repository.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func centrifugal(id string) pump.Spec {
	return pump.Spec{
		ID:           id,
		Name:         "Pump " + id,
		Type:         "centrifugal",
		RatedFlow:    25,
		RatedHead:    32,
		MaxHead:      42,
		RatedPower:   4,
		Applications: []string{"irrigation"},
		Fluids:       []string{"water"},
	}
}

func TestSQLiteStore_Pumps(t *testing.T) {
	Convey("Given an empty in-memory store", t, func() {
		ctx := context.Background()
		s := newStore(t)

		Convey("When a pump is upserted", func() {
			So(s.Upsert(ctx, centrifugal("p-1")), ShouldBeNil)

			Convey("Then it can be read back unchanged", func() {
				got, err := s.Get(ctx, "p-1")
				So(err, ShouldBeNil)
				So(got, ShouldResemble, centrifugal("p-1"))
			})

			Convey("Then the count should be one", func() {
				n, err := s.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})

			Convey("And it is upserted again with new values", func() {
				changed := centrifugal("p-1")
				changed.RatedHead = 40
				changed.Fluids = nil
				So(s.Upsert(ctx, changed), ShouldBeNil)

				Convey("Then the stored pump should be replaced", func() {
					got, err := s.Get(ctx, "p-1")
					So(err, ShouldBeNil)
					So(got.RatedHead, ShouldEqual, 40)
					So(got.Fluids, ShouldBeEmpty)

					n, _ := s.Count(ctx)
					So(n, ShouldEqual, 1)
				})
			})
		})

		Convey("When an invalid pump is upserted", func() {
			bad := centrifugal("p-bad")
			bad.RatedFlow = 0
			err := s.Upsert(ctx, bad)

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, pump.ErrInvalidPump), ShouldBeTrue)
			})
		})

		Convey("When reading an unknown pump", func() {
			_, err := s.Get(ctx, "missing")

			Convey("Then ErrNotFound should be returned", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When several pumps of different types exist", func() {
			sub := centrifugal("p-2")
			sub.Type = "submersible"
			So(s.Upsert(ctx, centrifugal("p-3")), ShouldBeNil)
			So(s.Upsert(ctx, sub), ShouldBeNil)
			So(s.Upsert(ctx, centrifugal("p-1")), ShouldBeNil)

			Convey("Then List should keep insertion order", func() {
				all, err := s.List(ctx, repository.Filter{})
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 3)
				So(all[0].ID, ShouldEqual, "p-3")
				So(all[1].ID, ShouldEqual, "p-2")
				So(all[2].ID, ShouldEqual, "p-1")
			})

			Convey("Then a type filter should match case-insensitively", func() {
				subs, err := s.List(ctx, repository.Filter{Type: "Submersible"})
				So(err, ShouldBeNil)
				So(len(subs), ShouldEqual, 1)
				So(subs[0].ID, ShouldEqual, "p-2")
			})
		})

		Convey("When deleting", func() {
			So(s.Upsert(ctx, centrifugal("p-1")), ShouldBeNil)

			Convey("Then an existing pump is removed", func() {
				So(s.Delete(ctx, "p-1"), ShouldBeNil)
				_, err := s.Get(ctx, "p-1")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("Then an unknown pump reports ErrNotFound", func() {
				So(errors.Is(s.Delete(ctx, "nope"), repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestSQLiteStore_Points(t *testing.T) {
	Convey("Given a stored pump", t, func() {
		ctx := context.Background()
		s := newStore(t)
		spec := centrifugal("p-1")
		So(s.Upsert(ctx, spec), ShouldBeNil)

		m, err := curve.Build(&spec, curve.ConventionMaxHead)
		So(err, ShouldBeNil)
		points := curve.Sample(m, 1)

		Convey("When its points are replaced", func() {
			So(s.ReplacePoints(ctx, "p-1", points), ShouldBeNil)

			Convey("Then they come back ordered by flow with optional columns", func() {
				got, err := s.Points(ctx, "p-1")
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, len(points))
				So(got[0].Flow, ShouldEqual, 0)
				So(got[0].Power, ShouldNotBeNil)
				So(*got[0].Power, ShouldAlmostEqual, *points[0].Power, 1e-9)
				for i := 1; i < len(got); i++ {
					So(got[i].Flow, ShouldBeGreaterThan, got[i-1].Flow)
				}
			})

			Convey("And replaced again with a shorter set", func() {
				So(s.ReplacePoints(ctx, "p-1", points[:3]), ShouldBeNil)

				Convey("Then only the new set remains", func() {
					got, err := s.Points(ctx, "p-1")
					So(err, ShouldBeNil)
					So(len(got), ShouldEqual, 3)
				})
			})

			Convey("And the pump is updated", func() {
				spec.MaxHead = 80
				So(s.Upsert(ctx, spec), ShouldBeNil)

				Convey("Then the points sampled before the update are dropped", func() {
					got, err := s.Points(ctx, "p-1")
					So(err, ShouldBeNil)
					So(got, ShouldBeEmpty)
				})
			})

			Convey("And the pump is deleted", func() {
				So(s.Delete(ctx, "p-1"), ShouldBeNil)

				Convey("Then its points are gone as well", func() {
					got, err := s.Points(ctx, "p-1")
					So(err, ShouldBeNil)
					So(got, ShouldBeEmpty)
				})
			})
		})

		Convey("When points without power data are stored", func() {
			bare := []curve.Point{{Flow: 0, Head: 40}, {Flow: 1, Head: 39.9}}
			So(s.ReplacePoints(ctx, "p-1", bare), ShouldBeNil)

			Convey("Then the optional columns read back as nil", func() {
				got, err := s.Points(ctx, "p-1")
				So(err, ShouldBeNil)
				So(got[1].Power, ShouldBeNil)
				So(got[1].Efficiency, ShouldBeNil)
			})
		})

		Convey("When points are written for an unknown pump", func() {
			err := s.ReplacePoints(ctx, "ghost", points)

			Convey("Then ErrNotFound should be returned", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestSQLiteStore_FileReopen(t *testing.T) {
	Convey("Given a file-backed store", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "catalog.db")

		s, err := repository.Open(ctx, path, repository.WithMaxOpenConns(2))
		So(err, ShouldBeNil)
		So(s.Upsert(ctx, centrifugal("p-1")), ShouldBeNil)
		So(s.Close(), ShouldBeNil)

		Convey("When it is reopened", func() {
			s2, err := repository.Open(ctx, path)
			So(err, ShouldBeNil)
			defer func() { _ = s2.Close() }()

			Convey("Then previously stored pumps survive", func() {
				got, err := s2.Get(ctx, "p-1")
				So(err, ShouldBeNil)
				So(got.Name, ShouldEqual, "Pump p-1")
			})
		})
	})
}
