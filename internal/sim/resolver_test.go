package sim

import (
	"math"
	"math/rand"
	"testing"
)

func TestResolvePairHeadOnEqualMassExchange(t *testing.T) {
	a := ball(100, 100, 10, 0, 10)
	b := ball(119, 100, -10, 0, 10)

	ev, ok := ResolvePair(&a, &b, MassForRadius(25))
	if !ok {
		t.Fatal("expected overlapping balls to collide")
	}
	if ev.Kind != KindBall {
		t.Errorf("event kind = %s, want %s", ev.Kind, KindBall)
	}

	assertVec(t, "a.Velocity", a.Velocity, NewVec2(-10, 0))
	assertVec(t, "b.Velocity", b.Velocity, NewVec2(10, 0))
}

func TestResolvePairConservesMomentumAndEnergy(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	maxMass := MassForRadius(25)

	for trial := 0; trial < 500; trial++ {
		ra := 5 + rng.Float64()*20
		rb := 5 + rng.Float64()*20
		angle := rng.Float64() * 2 * math.Pi
		dist := rng.Float64() * (ra + rb)

		a := ball(200, 200, rng.Float64()*700-350, rng.Float64()*700-350, ra)
		b := ball(0, 0, rng.Float64()*700-350, rng.Float64()*700-350, rb)
		b.Position = a.Position.Plus(FromAngle(angle, dist))

		momentumBefore := a.Momentum().Plus(b.Momentum())
		energyBefore := a.KineticEnergy() + b.KineticEnergy()

		if _, ok := ResolvePair(&a, &b, maxMass); !ok {
			t.Fatalf("trial %d: expected collision at distance %.3f", trial, dist)
		}

		momentumAfter := a.Momentum().Plus(b.Momentum())
		energyAfter := a.KineticEnergy() + b.KineticEnergy()

		if !approx(momentumBefore.X, momentumAfter.X, 1e-9) || !approx(momentumBefore.Y, momentumAfter.Y, 1e-9) {
			t.Fatalf("trial %d: momentum %v -> %v", trial, momentumBefore, momentumAfter)
		}
		if !approx(energyBefore, energyAfter, 1e-9) {
			t.Fatalf("trial %d: energy %.6f -> %.6f", trial, energyBefore, energyAfter)
		}

		separation := a.Position.Minus(b.Position).Magnitude()
		if separation < ra+rb-1e-9 {
			t.Fatalf("trial %d: residual overlap, distance %.9f < %.9f", trial, separation, ra+rb)
		}
	}
}

func TestResolvePairTangentialComponentUnchanged(t *testing.T) {
	// Contact normal along x; y velocities are tangential.
	a := ball(0, 0, 5, 7, 10)
	b := ball(15, 0, -3, -2, 10)

	if _, ok := ResolvePair(&a, &b, MassForRadius(25)); !ok {
		t.Fatal("expected collision")
	}
	if !approx(a.Velocity.Y, 7, tolerance) || !approx(b.Velocity.Y, -2, tolerance) {
		t.Errorf("tangential components changed: a.vy=%.6f b.vy=%.6f", a.Velocity.Y, b.Velocity.Y)
	}
}

func TestResolvePairSeparatedBallsUntouched(t *testing.T) {
	a := ball(0, 0, 1, 0, 10)
	b := ball(20.5, 0, -1, 0, 10)
	beforeA, beforeB := a, b

	if _, ok := ResolvePair(&a, &b, MassForRadius(25)); ok {
		t.Fatal("balls 20.5 apart with radii 10 must not collide")
	}
	if a != beforeA || b != beforeB {
		t.Error("non-colliding pair was mutated")
	}
}

func TestResolvePairTouchingCountsAsCollision(t *testing.T) {
	a := ball(0, 0, 1, 0, 10)
	b := ball(20, 0, -1, 0, 10)
	if _, ok := ResolvePair(&a, &b, MassForRadius(25)); !ok {
		t.Error("balls exactly touching should collide")
	}
}

func TestResolvePairCoincidentCentersStayFinite(t *testing.T) {
	a := ball(50, 50, 3, 4, 10)
	b := ball(50, 50, -1, 2, 6)

	if _, ok := ResolvePair(&a, &b, MassForRadius(25)); !ok {
		t.Fatal("coincident balls overlap")
	}

	for name, v := range map[string]Vec2{
		"a.Position": a.Position, "b.Position": b.Position,
		"a.Velocity": a.Velocity, "b.Velocity": b.Velocity,
	} {
		if math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsInf(v.X, 0) || math.IsInf(v.Y, 0) {
			t.Fatalf("%s is not finite: %v", name, v)
		}
	}

	if d := a.Position.Minus(b.Position).Magnitude(); !approx(d, 16, tolerance) {
		t.Errorf("coincident balls separated to %.6f, want 16", d)
	}
}

func TestResolvePairIntensity(t *testing.T) {
	maxMass := MassForRadius(25)

	a := ball(0, 0, 0, 0, 25)
	b := ball(30, 0, 0, 0, 25)
	ev, _ := ResolvePair(&a, &b, maxMass)
	if !approx(ev.Intensity, 1, tolerance) {
		t.Errorf("two max-radius balls: intensity = %.6f, want 1", ev.Intensity)
	}

	c := ball(0, 0, 0, 0, 5)
	d := ball(8, 0, 0, 0, 5)
	ev, _ = ResolvePair(&c, &d, maxMass)
	want := (c.Mass * d.Mass) / (maxMass * maxMass)
	if !approx(ev.Intensity, want, tolerance) {
		t.Errorf("intensity = %.9f, want %.9f", ev.Intensity, want)
	}
}
