package filereader

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	appErrors "intent-orchestrator/pkg/errors"
)

// intervals shorter than this count as quick processing
const quickIntervalSeconds = 2.0

type TenantFile struct {
	OriginalFile        string   `json:"original_file"`
	AnonymizedFile      string   `json:"anonymized_file"`
	ProcessingTime      string   `json:"processing_time"`
	TimeInterval        string   `json:"time_interval"`
	TimeIntervalSeconds *float64 `json:"time_interval_seconds"`
	Events              string   `json:"events"`
	EventsCount         *int     `json:"events_count"`
}

type TenantReport struct {
	TenantName        string       `json:"tenant_name"`
	StreamID          string       `json:"stream_id"`
	TenantNumber      int          `json:"tenant_number"`
	Files             []TenantFile `json:"files"`
	TotalEvents       int          `json:"total_events"`
	QuickProcessingPc float64      `json:"quick_processing_percentage"`

	column int
}

type TenantAnalysis struct {
	TotalFilesWithIntervals int     `json:"total_files_with_intervals"`
	QuickProcessingFiles    int     `json:"quick_processing_files_under_2s"`
	QuickProcessingPc       float64 `json:"quick_processing_percentage"`
	ProcessingFrequency     string  `json:"average_processing_frequency"`
	TotalEvents             int     `json:"total_events"`
	AverageEventsPerFile    float64 `json:"average_events_per_file"`
}

type TenantResult struct {
	TotalTenants int             `json:"total_tenants"`
	TotalFiles   int             `json:"total_files"`
	Tenants      []*TenantReport `json:"tenants"`
	Analysis     TenantAnalysis  `json:"analysis"`
	FileType     string          `json:"file_type"`
}

// analyzeTenants parses a horizontal tenant processing report. Each tenant is
// a block of four columns: "Name - StreamID", processing time, interval, events.
func analyzeTenants(path string) (*TenantResult, error) {
	r, f, err := openTable(path, ',')
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, appErrors.NewAppError(appErrors.CodeInvalidArgument, "File is empty", nil)
	}
	if err != nil {
		return nil, readError(err)
	}

	tenants := findTenantBlocks(header)
	counters := make([]int, len(tenants))

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, readError(err)
		}

		for i, tenant := range tenants {
			col := tenant.column
			if col+3 >= len(record) || strings.TrimSpace(record[col]) == "" {
				continue
			}
			counters[i]++
			tenant.Files = append(tenant.Files, TenantFile{
				OriginalFile:        strings.TrimSpace(record[col]),
				AnonymizedFile:      fmt.Sprintf("t%02d%02d", tenant.TenantNumber, counters[i]),
				ProcessingTime:      strings.TrimSpace(record[col+1]),
				TimeInterval:        strings.TrimSpace(record[col+2]),
				TimeIntervalSeconds: parseInterval(record[col+2]),
				Events:              strings.TrimSpace(record[col+3]),
				EventsCount:         parseCount(record[col+3]),
			})
		}
	}

	result := &TenantResult{
		TotalTenants: len(tenants),
		Tenants:      tenants,
		FileType:     "tenant_processing_csv_horizontal",
	}

	var quick, withInterval int
	for _, tenant := range tenants {
		var tQuick, tWithInterval int
		for _, file := range tenant.Files {
			if file.EventsCount != nil {
				tenant.TotalEvents += *file.EventsCount
			}
			if file.TimeIntervalSeconds != nil {
				tWithInterval++
				if *file.TimeIntervalSeconds < quickIntervalSeconds {
					tQuick++
				}
			}
		}
		tenant.QuickProcessingPc = percentage(tQuick, tWithInterval)
		result.TotalFiles += len(tenant.Files)
		result.Analysis.TotalEvents += tenant.TotalEvents
		quick += tQuick
		withInterval += tWithInterval
	}

	result.Analysis.TotalFilesWithIntervals = withInterval
	result.Analysis.QuickProcessingFiles = quick
	result.Analysis.QuickProcessingPc = percentage(quick, withInterval)
	result.Analysis.ProcessingFrequency = frequencyRating(result.Analysis.QuickProcessingPc)
	if result.TotalFiles > 0 {
		result.Analysis.AverageEventsPerFile = round2(float64(result.Analysis.TotalEvents) / float64(result.TotalFiles))
	}
	return result, nil
}

func findTenantBlocks(header []string) []*TenantReport {
	tenants := []*TenantReport{}
	for i := 0; i+3 < len(header); i++ {
		name, stream, ok := strings.Cut(strings.TrimSpace(header[i]), " - ")
		if !ok {
			continue
		}
		if !strings.Contains(header[i+1], "Processing Time UTC") ||
			!strings.Contains(header[i+2], "Time Interval") ||
			!(strings.Contains(header[i+3], "Event Count") || strings.Contains(header[i+3], "Events")) {
			continue
		}
		tenants = append(tenants, &TenantReport{
			TenantName:   strings.TrimSpace(name),
			StreamID:     strings.TrimSpace(stream),
			TenantNumber: len(tenants) + 1,
			Files:        []TenantFile{},
			column:       i,
		})
		i += 3
	}
	return tenants
}

// parseInterval reads "1.00s", "2.55m", "1.5h" or a bare number of seconds.
func parseInterval(raw string) *float64 {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return nil
	}

	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "s"):
		s = strings.TrimSuffix(s, "s")
	case strings.HasSuffix(s, "m"):
		s, multiplier = strings.TrimSuffix(s, "m"), 60
	case strings.HasSuffix(s, "h"):
		s, multiplier = strings.TrimSuffix(s, "h"), 3600
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	v *= multiplier
	return &v
}

func parseCount(raw string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}

func frequencyRating(pc float64) string {
	switch {
	case pc > 70:
		return "High"
	case pc > 30:
		return "Medium"
	default:
		return "Low"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
