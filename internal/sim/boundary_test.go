package sim

import "testing"

func TestReflectWalls(t *testing.T) {
	arena := Arena{Width: 600, Height: 400, WallThickness: 30}
	maxMass := MassForRadius(25)

	tests := []struct {
		name    string
		in      Ball
		wantPos Vec2
		wantVel Vec2
		hits    int
	}{
		{"inside", ball(300, 200, 10, -20, 10), NewVec2(300, 200), NewVec2(10, -20), 0},
		{"top", ball(300, 35, 10, -20, 10), NewVec2(300, 40), NewVec2(10, 20), 1},
		{"bottom", ball(300, 365, 10, 20, 10), NewVec2(300, 360), NewVec2(10, -20), 1},
		{"left", ball(32, 200, -15, 5, 10), NewVec2(40, 200), NewVec2(15, 5), 1},
		{"right", ball(580, 200, 15, 5, 10), NewVec2(560, 200), NewVec2(-15, 5), 1},
		{"top left corner", ball(10, 10, -3, -4, 10), NewVec2(40, 40), NewVec2(3, 4), 2},
		{"bottom right corner", ball(590, 390, 3, 4, 10), NewVec2(560, 360), NewVec2(-3, -4), 2},
		{"on the line", ball(40, 40, -3, -4, 10), NewVec2(40, 40), NewVec2(-3, -4), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.in
			var events []CollisionEvent
			hits := ReflectWalls(&b, arena, maxMass, func(ev CollisionEvent) {
				events = append(events, ev)
			})

			if hits != tt.hits || len(events) != tt.hits {
				t.Fatalf("hits = %d, events = %d, want %d", hits, len(events), tt.hits)
			}
			assertVec(t, "position", b.Position, tt.wantPos)
			assertVec(t, "velocity", b.Velocity, tt.wantVel)

			for _, ev := range events {
				if ev.Kind != KindWall {
					t.Errorf("event kind = %s, want %s", ev.Kind, KindWall)
				}
				if want := b.Mass / maxMass; !approx(ev.Intensity, want, tolerance) {
					t.Errorf("intensity = %.6f, want %.6f", ev.Intensity, want)
				}
			}
		})
	}
}

func TestReflectWallsNilEmitter(t *testing.T) {
	b := ball(0, 0, -1, -1, 5)
	if hits := ReflectWalls(&b, Arena{Width: 100, Height: 100, WallThickness: 10}, MassForRadius(25), nil); hits != 2 {
		t.Errorf("hits = %d, want 2", hits)
	}
}

func TestTickClampsBallAtLeftWall(t *testing.T) {
	const wall = 30.0
	settings := DefaultSettings()

	paused := New(settings, NewRand(1), WithBalls(ball(wall+4, 100, -50, 0, 5)))
	frame := paused.Tick(0.02, true)

	got := paused.Balls()[0]
	assertVec(t, "paused position", got.Position, NewVec2(wall+5, 100))
	assertVec(t, "paused velocity", got.Velocity, NewVec2(50, 0))
	if frame.Stats.WallCollisions != 1 {
		t.Errorf("wall collisions = %d, want 1", frame.Stats.WallCollisions)
	}

	running := New(settings, NewRand(1), WithBalls(ball(wall+4, 100, -50, 0, 5)))
	running.Tick(0.02, false)

	got = running.Balls()[0]
	assertVec(t, "running position", got.Position, NewVec2(wall+5+50*0.02, 100))
	assertVec(t, "running velocity", got.Velocity, NewVec2(50, 0))
}
