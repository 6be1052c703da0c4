package viewer

import (
	"fmt"
	"math"

	"github.com/ballsim/backend/internal/sim"
	"github.com/gdamore/tcell/v2"
)

var (
	wallStyle = tcell.StyleDefault.Foreground(tcell.ColorRed)
	hudStyle  = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	flagStyle = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
)

// projection maps arena coordinates onto terminal cells, stretching each axis
// independently to fill the screen.
type projection struct {
	sx, sy float64 // cells per world unit
}

func newProjection(a sim.Arena, cols, rows int) projection {
	return projection{sx: float64(cols) / a.Width, sy: float64(rows) / a.Height}
}

func (p projection) toCell(x, y float64) (int, int) {
	return int(math.Floor(x * p.sx)), int(math.Floor(y * p.sy))
}

// toWorld returns the world point at the centre of a cell.
func (p projection) toWorld(col, row int) (float64, float64) {
	return (float64(col) + 0.5) / p.sx, (float64(row) + 0.5) / p.sy
}

// Render draws the walls, balls and the statistics overlay. It does not call Show.
func Render(screen tcell.Screen, snap sim.Snapshot, muted bool) {
	screen.Clear()
	cols, rows := screen.Size()
	if cols <= 0 || rows <= 0 || snap.Arena.Width <= 0 || snap.Arena.Height <= 0 {
		return
	}
	p := newProjection(snap.Arena, cols, rows)

	drawWalls(screen, p, snap.Arena, cols, rows)
	for _, b := range snap.Balls {
		drawBall(screen, p, b, cols, rows)
	}

	hud := []string{
		fmt.Sprintf("Number of balls: %d", len(snap.Balls)),
		fmt.Sprintf("Ball collisions per second: %d", int(snap.Stats.BallCollisionsPerSec)),
		fmt.Sprintf("Wall collisions per second: %d", int(snap.Stats.WallCollisionsPerSec)),
	}
	for i, line := range hud {
		drawText(screen, 0, rows-len(hud)+i, hudStyle, line)
	}

	flagRow := 0
	if muted {
		drawText(screen, cols-len("Muted")-1, flagRow, flagStyle, "Muted")
		flagRow++
	}
	if snap.Mode == sim.ModePaused {
		drawText(screen, cols-len("Paused")-1, flagRow, flagStyle, "Paused")
	}
}

// drawWalls outlines the inner edge of the walls.
func drawWalls(screen tcell.Screen, p projection, a sim.Arena, cols, rows int) {
	left, top := p.toCell(a.WallThickness, a.WallThickness)
	right, bottom := p.toCell(a.Width-a.WallThickness, a.Height-a.WallThickness)
	right = min(right, cols-1)
	bottom = min(bottom, rows-1)
	if right <= left || bottom <= top {
		return
	}

	for x := left + 1; x < right; x++ {
		screen.SetContent(x, top, tcell.RuneHLine, nil, wallStyle)
		screen.SetContent(x, bottom, tcell.RuneHLine, nil, wallStyle)
	}
	for y := top + 1; y < bottom; y++ {
		screen.SetContent(left, y, tcell.RuneVLine, nil, wallStyle)
		screen.SetContent(right, y, tcell.RuneVLine, nil, wallStyle)
	}
	screen.SetContent(left, top, tcell.RuneULCorner, nil, wallStyle)
	screen.SetContent(right, top, tcell.RuneURCorner, nil, wallStyle)
	screen.SetContent(left, bottom, tcell.RuneLLCorner, nil, wallStyle)
	screen.SetContent(right, bottom, tcell.RuneLRCorner, nil, wallStyle)
}

// drawBall fills every cell whose centre lies inside the disc. Balls smaller
// than a cell still get a dot.
func drawBall(screen tcell.Screen, p projection, b sim.BallView, cols, rows int) {
	style := tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(b.Color.R), int32(b.Color.G), int32(b.Color.B)))
	minCol, minRow := p.toCell(b.Position.X-b.Radius, b.Position.Y-b.Radius)
	maxCol, maxRow := p.toCell(b.Position.X+b.Radius, b.Position.Y+b.Radius)

	filled := false
	r2 := b.Radius * b.Radius
	for row := max(minRow, 0); row <= min(maxRow, rows-1); row++ {
		for col := max(minCol, 0); col <= min(maxCol, cols-1); col++ {
			x, y := p.toWorld(col, row)
			dx, dy := x-b.Position.X, y-b.Position.Y
			if dx*dx+dy*dy <= r2 {
				screen.SetContent(col, row, '█', nil, style)
				filled = true
			}
		}
	}
	if filled {
		return
	}
	col, row := p.toCell(b.Position.X, b.Position.Y)
	if col >= 0 && col < cols && row >= 0 && row < rows {
		screen.SetContent(col, row, '•', nil, style)
	}
}

func drawText(screen tcell.Screen, x, y int, style tcell.Style, text string) {
	for i, r := range text {
		screen.SetContent(x+i, y, r, nil, style)
	}
}
