package acquisition

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadScheme reads an acquisition scheme from a whitespace-separated text
// file with one sample per line and columns
//
//	q  bvecX  bvecY  bvecZ  bigDelta  smallDelta
//
// in 1/mm and seconds. Blank lines and lines starting with '#' are skipped.
func LoadScheme(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("acquisition: opening scheme: %w", err)
	}
	defer f.Close()

	var (
		qvals      []float64
		bvecs      [][3]float64
		bigDelta   []float64
		smallDelta []float64
	)
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 6 {
			return nil, fmt.Errorf("acquisition: line %d: want 6 columns, got %d", lineNo, len(fields))
		}
		vals := make([]float64, 6)
		for k, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("acquisition: line %d column %d: %w", lineNo, k+1, err)
			}
			vals[k] = v
		}
		qvals = append(qvals, vals[0])
		bvecs = append(bvecs, [3]float64{vals[1], vals[2], vals[3]})
		bigDelta = append(bigDelta, vals[4])
		smallDelta = append(smallDelta, vals[5])
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("acquisition: reading scheme: %w", err)
	}
	return NewTable(qvals, bvecs, bigDelta, smallDelta)
}

// LoadSignal reads a signal vector from a text file with one value per line,
// in scheme order. Blank lines and '#' comments are skipped.
func LoadSignal(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("acquisition: opening signal: %w", err)
	}
	defer f.Close()

	var signal []float64
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("acquisition: signal line %d: %w", lineNo, err)
		}
		signal = append(signal, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("acquisition: reading signal: %w", err)
	}
	return signal, nil
}
