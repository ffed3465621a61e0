package imaging

import (
	"fmt"
	"math"
	"sort"

	"github.com/ironsheep/pgm-tools-mcp/internal/raster"
)

// LevelFrequency is one gray level and how often it occurs.
type LevelFrequency struct {
	Level      uint8   `json:"level"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"` // 0-100
}

// DominantLevelsResult lists the most frequent levels of a raster, most
// common first.
type DominantLevelsResult struct {
	Maxval      uint8            `json:"maxval"`
	TotalPixels int              `json:"total_pixels"`
	Distinct    int              `json:"distinct_levels"`
	Levels      []LevelFrequency `json:"levels"`
}

// DominantLevels returns the count most common levels of img. Ties are
// broken by the lower level. count <= 0 returns every level present.
func DominantLevels(img *raster.Image, count int) (*DominantLevelsResult, error) {
	total := img.Width() * img.Height()
	if total == 0 {
		return nil, fmt.Errorf("cannot analyze empty raster (%dx%d)", img.Width(), img.Height())
	}

	var hist [raster.PixMax + 1]int
	for _, v := range img.Pix() {
		hist[v]++
	}

	levels := make([]LevelFrequency, 0, len(hist))
	for l, n := range hist {
		if n == 0 {
			continue
		}
		levels = append(levels, LevelFrequency{
			Level:      uint8(l),
			Count:      n,
			Percentage: math.Round(float64(n)/float64(total)*10000) / 100,
		})
	}
	distinct := len(levels)

	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].Count > levels[j].Count
	})
	if count > 0 && len(levels) > count {
		levels = levels[:count]
	}

	return &DominantLevelsResult{
		Maxval:      img.Maxval(),
		TotalPixels: total,
		Distinct:    distinct,
		Levels:      levels,
	}, nil
}

// CompareResult describes how two rasters differ over their common area.
type CompareResult struct {
	SimilarityScore float64 `json:"similarity_score"` // share of pixels within tolerance, 0-1
	PixelsDifferent int     `json:"pixels_different"`
	TotalPixels     int     `json:"total_pixels"`
	MaxLevelDiff    int     `json:"max_level_diff"`
	AverageDiff     float64 `json:"average_level_diff"`
	SameSize        bool    `json:"same_size"`
	SameMaxval      bool    `json:"same_maxval"`
	Identical       bool    `json:"identical"`
}

// Compare compares a and b pixel by pixel over the top-left area both
// cover. Levels are compared as stored, without rescaling by maxval; a
// pixel counts as different when the levels differ by more than
// tolerance.
func Compare(a, b *raster.Image, tolerance int) (*CompareResult, error) {
	if tolerance < 0 {
		return nil, fmt.Errorf("tolerance %d must be non-negative", tolerance)
	}
	w := min(a.Width(), b.Width())
	h := min(a.Height(), b.Height())

	res := &CompareResult{
		TotalPixels: w * h,
		SameSize:    a.Width() == b.Width() && a.Height() == b.Height(),
		SameMaxval:  a.Maxval() == b.Maxval(),
	}

	sum := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := absDiff(a.Pixel(x, y), b.Pixel(x, y))
			sum += d
			res.MaxLevelDiff = max(res.MaxLevelDiff, d)
			if d > tolerance {
				res.PixelsDifferent++
			}
		}
	}

	res.SimilarityScore = 1
	if res.TotalPixels > 0 {
		res.SimilarityScore = math.Round((1-float64(res.PixelsDifferent)/float64(res.TotalPixels))*1000) / 1000
		res.AverageDiff = math.Round(float64(sum)/float64(res.TotalPixels)*100) / 100
	}
	res.Identical = res.SameSize && res.SameMaxval && res.MaxLevelDiff == 0
	return res, nil
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
