// Package bmi cleans tab-separated height/weight tables and classifies each
// person by body mass index.
package bmi

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrNoData is returned when no usable row is left to analyze.
var ErrNoData = errors.New("no usable rows")

// Category is a weight category derived from BMI.
type Category string

// Weight categories.
const (
	Underweight  Category = "Underweight"
	NormalWeight Category = "Normal weight"
	Overweight   Category = "Overweight"
	Obese        Category = "Obese"
)

// Categories lists the categories in ascending BMI order.
func Categories() []Category {
	return []Category{Underweight, NormalWeight, Overweight, Obese}
}

// Classify maps a BMI value to its category.
func Classify(bmi float64) Category {
	switch {
	case bmi < 18.5:
		return Underweight
	case bmi < 25:
		return NormalWeight
	case bmi < 35:
		return Overweight
	default:
		return Obese
	}
}

// Compute returns weight / (height in metres)^2 rounded to two decimals.
func Compute(heightCM, weightKG int) float64 {
	m := float64(heightCM) / 100
	return math.Round(float64(weightKG)/(m*m)*100) / 100
}

// Raw is one input row before cleaning.
type Raw struct {
	Name, Height, Weight string
}

// Person is a cleaned row with its BMI.
type Person struct {
	Name     string   `json:"name"`
	Height   int      `json:"height"`
	Weight   int      `json:"weight"`
	BMI      float64  `json:"bmi"`
	Category Category `json:"category"`
}

// Parse reads a tab-separated table. The first row is a header; rows
// without exactly three cells are dropped.
func Parse(r io.Reader) ([]Raw, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var out []Raw
	header := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse: %w", err)
		}
		if header {
			header = false
			continue
		}
		if len(rec) != 3 {
			continue
		}
		out = append(out, Raw{
			Name:   strings.TrimSpace(rec[0]),
			Height: strings.TrimSpace(rec[1]),
			Weight: strings.TrimSpace(rec[2]),
		})
	}
	return out, nil
}

var nonDigits = regexp.MustCompile(`[^0-9]`)

// Clean strips everything but digits from height and weight, title-cases
// names and computes BMI. Rows whose numbers are still unusable are
// dropped and counted.
func Clean(rows []Raw) (people []Person, skipped int) {
	title := cases.Title(language.Und)
	for _, r := range rows {
		h, herr := strconv.Atoi(nonDigits.ReplaceAllString(r.Height, ""))
		w, werr := strconv.Atoi(nonDigits.ReplaceAllString(r.Weight, ""))
		if herr != nil || werr != nil || h == 0 {
			skipped++
			continue
		}
		bmi := Compute(h, w)
		people = append(people, Person{
			Name:     title.String(r.Name),
			Height:   h,
			Weight:   w,
			BMI:      bmi,
			Category: Classify(bmi),
		})
	}
	return people, skipped
}

// Share is the percentage of people in one category.
type Share struct {
	Category Category `json:"category"`
	Percent  float64  `json:"percent"`
}

// Stats summarizes a cleaned table.
type Stats struct {
	Count         int     `json:"count"`
	AverageHeight float64 `json:"average_height"`
	AverageWeight float64 `json:"average_weight"`
	MinHeight     int     `json:"min_height"`
	MaxHeight     int     `json:"max_height"`
	MinWeight     int     `json:"min_weight"`
	MaxWeight     int     `json:"max_weight"`
	Shares        []Share `json:"shares"`
}

// Analyze computes Stats. It returns ErrNoData for an empty table.
func Analyze(people []Person) (Stats, error) {
	if len(people) == 0 {
		return Stats{}, ErrNoData
	}
	st := Stats{
		Count:     len(people),
		MinHeight: people[0].Height, MaxHeight: people[0].Height,
		MinWeight: people[0].Weight, MaxWeight: people[0].Weight,
	}
	counts := make(map[Category]int, 4)
	hSum, wSum := 0, 0
	for _, p := range people {
		hSum += p.Height
		wSum += p.Weight
		st.MinHeight = min(st.MinHeight, p.Height)
		st.MaxHeight = max(st.MaxHeight, p.Height)
		st.MinWeight = min(st.MinWeight, p.Weight)
		st.MaxWeight = max(st.MaxWeight, p.Weight)
		counts[p.Category]++
	}
	n := float64(len(people))
	st.AverageHeight = float64(hSum) / n
	st.AverageWeight = float64(wSum) / n
	for _, c := range Categories() {
		st.Shares = append(st.Shares, Share{Category: c, Percent: float64(counts[c]) / n * 100})
	}
	return st, nil
}

// Write stores people as a tab-separated table with a header row.
func Write(w io.Writer, people []Person) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write([]string{"Name", "Height", "Weight", "BMI", "Weight Category"}); err != nil {
		return err
	}
	for _, p := range people {
		if err := cw.Write([]string{
			p.Name,
			strconv.Itoa(p.Height),
			strconv.Itoa(p.Weight),
			strconv.FormatFloat(p.BMI, 'f', -1, 64),
			string(p.Category),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Process parses, cleans and analyzes in, writing the cleaned table to out.
func Process(in io.Reader, out io.Writer) (Stats, error) {
	raw, err := Parse(in)
	if err != nil {
		return Stats{}, err
	}
	people, _ := Clean(raw)
	st, err := Analyze(people)
	if err != nil {
		return Stats{}, err
	}
	if err := Write(out, people); err != nil {
		return Stats{}, fmt.Errorf("write: %w", err)
	}
	return st, nil
}
