package report

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"mapsreviews/review"
)

var ErrNoData = errors.New("no monthly data to plot")

const (
	width  = 12 * vg.Inch
	height = 8 * vg.Inch
)

var (
	ratingColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	countColor  = color.RGBA{R: 128, G: 128, B: 128, A: 160}
)

// PlotMonthly renders average rating and review count per month to a PNG
// file at path.
func PlotMonthly(stats []review.MonthlyStat, path string) error {
	if len(stats) == 0 {
		return ErrNoData
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create plot file: %w", err)
	}

	if err := WriteMonthlyPNG(f, stats); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteMonthlyPNG draws the rating line above the count bars, both over the
// same month axis.
func WriteMonthlyPNG(w io.Writer, stats []review.MonthlyStat) error {
	if len(stats) == 0 {
		return ErrNoData
	}

	labels := make([]string, len(stats))
	ratings := make(plotter.XYs, len(stats))
	counts := make(plotter.Values, len(stats))
	countLabels := make([]string, len(stats))
	countPoints := make(plotter.XYs, len(stats))
	maxCount := 0

	for i, s := range stats {
		labels[i] = s.Month.Format("Jan 2006")
		ratings[i] = plotter.XY{X: float64(i), Y: s.AvgRating}
		counts[i] = float64(s.Count)
		countLabels[i] = strconv.Itoa(s.Count)
		countPoints[i] = plotter.XY{X: float64(i), Y: float64(s.Count)}
		maxCount = max(maxCount, s.Count)
	}

	top, err := ratingPlot(ratings, labels)
	if err != nil {
		return err
	}
	bottom, err := countPlot(counts, countPoints, countLabels, labels, maxCount)
	if err != nil {
		return err
	}

	img := vgimg.New(width, height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      2,
		Cols:      1,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}

	canvases := plot.Align([][]*plot.Plot{{top}, {bottom}}, tiles, dc)
	top.Draw(canvases[0][0])
	bottom.Draw(canvases[1][0])

	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(w); err != nil {
		return fmt.Errorf("failed to encode plot: %w", err)
	}
	return nil
}

func ratingPlot(ratings plotter.XYs, labels []string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Average Review Score by Month"
	p.Y.Label.Text = "Average Rating"
	p.Y.Min = 1
	p.Y.Max = 5
	p.Add(plotter.NewGrid())

	line, points, err := plotter.NewLinePoints(ratings)
	if err != nil {
		return nil, fmt.Errorf("failed to build rating series: %w", err)
	}
	line.Color = ratingColor
	line.Width = vg.Points(2)
	points.Color = ratingColor
	points.Radius = vg.Points(4)
	p.Add(line, points)
	p.Legend.Add("avg rating", line, points)
	p.Legend.Top = true

	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	return p, nil
}

func countPlot(counts plotter.Values, points plotter.XYs, text, labels []string, maxCount int) (*plot.Plot, error) {
	p := plot.New()
	p.Y.Label.Text = "Number of Reviews"
	p.Y.Min = 0
	p.Y.Max = float64(maxCount) * 1.15

	bars, err := plotter.NewBarChart(counts, vg.Points(20))
	if err != nil {
		return nil, fmt.Errorf("failed to build count series: %w", err)
	}
	bars.Color = countColor
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.Legend.Add("reviews", bars)
	p.Legend.Top = true

	annotations, err := plotter.NewLabels(plotter.XYLabels{XYs: points, Labels: text})
	if err != nil {
		return nil, fmt.Errorf("failed to build count labels: %w", err)
	}
	annotations.Offset = vg.Point{X: -vg.Points(3), Y: vg.Points(3)}
	p.Add(annotations)

	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	return p, nil
}
