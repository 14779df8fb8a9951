package pump_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/pumpmatch/internal/domain/pump"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSpec_Validate(t *testing.T) {
	Convey("Given a pump spec", t, func() {
		spec := pump.Spec{ID: "p-1", RatedFlow: 25, RatedHead: 32}

		Convey("When only rated values are set", func() {
			Convey("Then it should be valid", func() {
				So(spec.Validate(), ShouldBeNil)
			})
		})

		Convey("When rated flow is missing", func() {
			spec.RatedFlow = 0

			Convey("Then it should be rejected as an invalid pump", func() {
				err := spec.Validate()
				So(errors.Is(err, pump.ErrInvalidPump), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "rated_flow")
			})
		})

		Convey("When rated head is NaN", func() {
			spec.RatedHead = math.NaN()

			Convey("Then it should be rejected", func() {
				So(errors.Is(spec.Validate(), pump.ErrInvalidPump), ShouldBeTrue)
			})
		})

		Convey("When efficiency exceeds 100", func() {
			spec.RatedEfficiency = 120

			Convey("Then it should be rejected", func() {
				So(errors.Is(spec.Validate(), pump.ErrInvalidPump), ShouldBeTrue)
			})
		})

		Convey("When the explicit envelope is inverted", func() {
			spec.MinFlow = 40
			spec.MaxFlow = 20

			Convey("Then it should be rejected", func() {
				So(errors.Is(spec.Validate(), pump.ErrInvalidPump), ShouldBeTrue)
			})
		})

		Convey("When an explicit max flow sits below the derived min flow", func() {
			spec = pump.Spec{ID: "p-2", RatedFlow: 100, RatedHead: 20, MaxFlow: 30}

			Convey("Then the empty envelope should be rejected", func() {
				err := spec.Validate()
				So(errors.Is(err, pump.ErrInvalidPump), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "envelope")
			})
		})

		Convey("When an explicit min flow sits above the derived max flow", func() {
			spec = pump.Spec{ID: "p-3", RatedFlow: 10, RatedHead: 20, MinFlow: 18}

			Convey("Then the empty envelope should be rejected", func() {
				So(errors.Is(spec.Validate(), pump.ErrInvalidPump), ShouldBeTrue)
			})
		})

		Convey("When one bound is explicit and the envelope stays open", func() {
			spec.MaxFlow = 30

			Convey("Then it should be valid", func() {
				So(spec.Validate(), ShouldBeNil)
				lo, hi := spec.Envelope()
				So(lo, ShouldEqual, 10)
				So(hi, ShouldEqual, 30)
			})
		})
	})
}

func TestRequirement_Validate(t *testing.T) {
	Convey("Given a requirement", t, func() {
		Convey("When flow and head are positive", func() {
			req := pump.Requirement{Flow: 25, Head: 30}
			So(req.Validate(), ShouldBeNil)
		})

		Convey("When flow is zero", func() {
			req := pump.Requirement{Flow: 0, Head: 30}
			err := req.Validate()
			So(errors.Is(err, pump.ErrInvalidRequirement), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "required_flow")
		})

		Convey("When head is negative", func() {
			req := pump.Requirement{Flow: 25, Head: -1}
			So(errors.Is(req.Validate(), pump.ErrInvalidRequirement), ShouldBeTrue)
		})

		Convey("When flow is infinite", func() {
			req := pump.Requirement{Flow: math.Inf(1), Head: 30}
			So(errors.Is(req.Validate(), pump.ErrInvalidRequirement), ShouldBeTrue)
		})
	})
}

func TestSpec_Tags(t *testing.T) {
	Convey("Given a pump tagged for building supply and clean water", t, func() {
		spec := pump.Spec{
			ID: "p-1", RatedFlow: 25, RatedHead: 32,
			Applications: []string{"Building_Supply", "irrigation"},
			Fluids:       []string{"clean_water"},
		}

		Convey("Then application matching should ignore case", func() {
			So(spec.HasApplication("building_supply"), ShouldBeTrue)
			So(spec.HasApplication("fire_fighting"), ShouldBeFalse)
			So(spec.HasApplication(""), ShouldBeFalse)
		})

		Convey("Then any plain water spelling should match", func() {
			So(spec.HandlesFluid("water"), ShouldBeTrue)
			So(spec.HandlesFluid("Clean Water"), ShouldBeTrue)
			So(spec.HandlesFluid("sewage"), ShouldBeFalse)
		})
	})
}
