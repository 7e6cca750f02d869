package bot

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"casino/models"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
)

// BoardImageName is the attachment name used for rendered Mines boards
const BoardImageName = "mines.png"

const (
	boardGrid    = 5
	boardTile    = 56
	boardGap     = 6
	boardPadding = 14
	boardFooter  = 30
)

// RenderMinesBoard draws a Mines grid as a PNG
func RenderMinesBoard(result *models.MinesResult) ([]byte, error) {
	if len(result.Tiles) != boardGrid*boardGrid {
		return nil, fmt.Errorf("expected %d tiles, got %d", boardGrid*boardGrid, len(result.Tiles))
	}

	start := time.Now()
	defer func() {
		log.WithField("duration_ms", time.Since(start).Milliseconds()).
			Debug("Mines board image generation completed")
	}()

	side := boardPadding*2 + boardGrid*boardTile + (boardGrid-1)*boardGap
	dc := gg.NewContext(side, side+boardFooter)

	// Background
	dc.SetRGB(0.07, 0.08, 0.12)
	dc.Clear()

	numberFace, err := loadFont(gomono.TTF, 16)
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	footerFace, err := loadFont(gobold.TTF, 16)
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	for idx, tile := range result.Tiles {
		row, col := idx/boardGrid, idx%boardGrid
		x := float64(boardPadding + col*(boardTile+boardGap))
		y := float64(boardPadding + row*(boardTile+boardGap))
		cx, cy := x+boardTile/2, y+boardTile/2

		switch {
		case !tile.Revealed:
			dc.SetRGB(0.22, 0.25, 0.33)
		case tile.Mine:
			dc.SetRGB(0.85, 0.25, 0.25)
		default:
			dc.SetRGB(0.2, 0.7, 0.4)
		}
		dc.DrawRoundedRectangle(x, y, boardTile, boardTile, 8)
		dc.Fill()

		switch {
		case !tile.Revealed:
			dc.SetFontFace(numberFace)
			dc.SetRGB(0.75, 0.78, 0.85)
			dc.DrawStringAnchored(strconv.Itoa(idx+1), cx, cy, 0.5, 0.35)
		case tile.Mine:
			dc.SetRGB(0.1, 0.1, 0.1)
			dc.DrawCircle(cx, cy, boardTile/5)
			dc.Fill()
		default:
			dc.SetRGB(1, 1, 1)
			dc.DrawRegularPolygon(4, cx, cy, boardTile/4, 0)
			dc.Fill()
		}
	}

	// Footer with the multiplier
	dc.SetFontFace(footerFace)
	if result.HitMine {
		dc.SetRGB(1.0, 0.4, 0.4)
	} else {
		dc.SetRGB(0.4, 1.0, 0.4)
	}
	footer := fmt.Sprintf("%d mines  %.2fx", result.Mines, result.Multiplier)
	dc.DrawStringAnchored(footer, float64(side)/2, float64(side)+boardFooter/2-4, 0.5, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func loadFont(fontData []byte, size float64) (font.Face, error) {
	f, err := truetype.Parse(fontData)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}
