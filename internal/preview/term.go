package preview

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-runewidth"

	"github.com/ivlev/framefx/internal/frame"
	"github.com/ivlev/framefx/internal/renderer"
)

type colorMode uint8

const (
	colorOff colorMode = iota
	colorANSI256
	colorTrue
)

var (
	detectOnce sync.Once
	termColor  colorMode
)

// detectColorMode checks terminal capabilities once.
func detectColorMode() colorMode {
	detectOnce.Do(func() {
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			termColor = colorOff
			return
		}
		term := strings.ToLower(os.Getenv("TERM"))
		ct := strings.ToLower(os.Getenv("COLORTERM"))
		switch {
		case strings.Contains(ct, "truecolor"), strings.Contains(ct, "24bit"):
			termColor = colorTrue
		case term == "dumb", term == "":
			termColor = colorOff
		default:
			termColor = colorANSI256
		}
	})
	return termColor
}

const ansiReset = "\x1b[0m"

func colorSeq(mode colorMode, layer int, r, g, b uint8) string {
	switch mode {
	case colorTrue:
		return fmt.Sprintf("\x1b[%d;2;%d;%d;%dm", layer, r, g, b)
	case colorANSI256:
		idx := 16 + 36*(int(r)*5/255) + 6*(int(g)*5/255) + int(b)*5/255
		return fmt.Sprintf("\x1b[%d;5;%dm", layer, idx)
	}
	return ""
}

// Terminal turns rendered frames into terminal text.
type Terminal struct {
	mode colorMode
	sb   strings.Builder
}

// NewTerminal returns a Terminal using the current terminal's colour support.
func NewTerminal() *Terminal {
	return &Terminal{mode: detectColorMode()}
}

// HalfBlock packs two pixel rows into each text row using "▀" with the top
// pixel as foreground and the bottom pixel as background. buf is sampled
// nearest-neighbour to cols x rows cells.
func (t *Terminal) HalfBlock(buf *frame.Buffer, cols, rows int) string {
	if buf.Empty() || cols <= 0 || rows <= 0 {
		return ""
	}
	t.sb.Reset()
	t.sb.Grow(cols * rows * 24)
	pixelRows := rows * 2

	for row := 0; row < rows; row++ {
		var lastFg, lastBg string
		for col := 0; col < cols; col++ {
			x := col * buf.Width / cols
			topY := row * 2 * buf.Height / pixelRows
			tr, tg, tb, _ := buf.At(x, topY)
			br, bg, bb, _ := buf.At(x, (row*2+1)*buf.Height/pixelRows)

			if t.mode == colorOff {
				t.sb.WriteByte(rampChar(buf.Luma(buf.Offset(x, topY))))
				continue
			}
			fg := colorSeq(t.mode, 38, tr, tg, tb)
			bgc := colorSeq(t.mode, 48, br, bg, bb)
			if fg != lastFg {
				t.sb.WriteString(fg)
				lastFg = fg
			}
			if bgc != lastBg {
				t.sb.WriteString(bgc)
				lastBg = bgc
			}
			t.sb.WriteString("▀")
		}
		if t.mode != colorOff {
			t.sb.WriteString(ansiReset)
		}
		if row < rows-1 {
			t.sb.WriteByte('\n')
		}
	}
	return t.sb.String()
}

// Cells prints a glyph grid with each glyph in its cell colour. Rows are cut
// at maxWidth display columns.
func (t *Terminal) Cells(cells []renderer.Cell, cols, maxWidth, maxRows int) string {
	if cols <= 0 || len(cells) == 0 {
		return ""
	}
	t.sb.Reset()
	rows := len(cells) / cols
	if maxRows > 0 && rows > maxRows {
		rows = maxRows
	}
	for row := 0; row < rows; row++ {
		width := 0
		var last string
		for _, c := range cells[row*cols : (row+1)*cols] {
			glyph := c.Glyph
			if c.Blank || glyph == "" {
				glyph = " "
			}
			w := runewidth.StringWidth(glyph)
			if maxWidth > 0 && width+w > maxWidth {
				break
			}
			width += w
			if !c.Blank && t.mode != colorOff {
				if seq := colorSeq(t.mode, 38, c.Color.R, c.Color.G, c.Color.B); seq != last {
					t.sb.WriteString(seq)
					last = seq
				}
			}
			t.sb.WriteString(glyph)
		}
		if last != "" {
			t.sb.WriteString(ansiReset)
		}
		if row < rows-1 {
			t.sb.WriteByte('\n')
		}
	}
	return t.sb.String()
}

const asciiRamp = " .:-=+*#%@"

func rampChar(lum float64) byte {
	return asciiRamp[frame.ClampInt(int(lum)*(len(asciiRamp)-1)/255, 0, len(asciiRamp)-1)]
}
