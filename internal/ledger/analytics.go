package ledger

import (
	"slices"
	"sort"

	"github.com/kozaktomas/face-attendance/internal/roster"
)

// UnknownDept labels attendance of reg nos without a department.
const UnknownDept = "Unknown"

// Count is a (key, count) pair, encoded as a two element JSON array.
type Count [2]any

// Summary is the analytics document.
type Summary struct {
	TotalStudents    int      `json:"total_students"`
	TotalAttendance  int      `json:"total_attendance"`
	AttendanceByDate []Count  `json:"attendance_by_date"`
	TopStudents      []Count  `json:"top_students"`
	AttendanceByDept []Count  `json:"attendance_by_dept"`
	Recent           []Record `json:"recent"`
}

// Summarize aggregates the ledger. Dates and departments are sorted
// ascending; top students by count descending with ties in order of first
// attendance; recent lists the newest records first.
func Summarize(records []Record, students []roster.Student, topN, recentN int) Summary {
	deptOf := make(map[string]string, len(students))
	for _, s := range students {
		deptOf[s.RegNo] = s.Dept
	}

	byDate := map[string]int{}
	byDept := map[string]int{}
	byStudent := map[string]int{}
	var studentOrder []string

	for _, r := range records {
		if r.Date != "" {
			byDate[r.Date]++
		}
		if r.RegNo == "" {
			continue
		}
		if _, seen := byStudent[r.RegNo]; !seen {
			studentOrder = append(studentOrder, r.RegNo)
		}
		byStudent[r.RegNo]++

		dept := deptOf[r.RegNo]
		if dept == "" {
			dept = UnknownDept
		}
		byDept[dept]++
	}

	top := slices.Clone(studentOrder)
	sort.SliceStable(top, func(i, j int) bool { return byStudent[top[i]] > byStudent[top[j]] })
	if topN >= 0 && len(top) > topN {
		top = top[:topN]
	}

	topCounts := make([]Count, len(top))
	for i, reg := range top {
		topCounts[i] = Count{reg, byStudent[reg]}
	}

	recent := slices.Clone(records)
	slices.Reverse(recent)
	if recentN >= 0 && len(recent) > recentN {
		recent = recent[:recentN]
	}
	if recent == nil {
		recent = []Record{}
	}

	return Summary{
		TotalStudents:    len(students),
		TotalAttendance:  len(records),
		AttendanceByDate: sortedCounts(byDate),
		TopStudents:      topCounts,
		AttendanceByDept: sortedCounts(byDept),
		Recent:           recent,
	}
}

func sortedCounts(m map[string]int) []Count {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	counts := make([]Count, len(keys))
	for i, k := range keys {
		counts[i] = Count{k, m[k]}
	}
	return counts
}
