package services

import (
	"sort"

	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/models"
)

// Finalize folds the terminal job state and its row errors into a JobResult.
// Errors are counted once per row and returned sorted by row; truncated counts
// rows whose errors were not retained. Calling it again with the same inputs
// yields the same result.
func Finalize(state models.JobState, errs []models.ValidationError, truncated int) models.JobResult {
	sorted := append([]models.ValidationError(nil), errs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Row < sorted[j].Row })

	unique := make([]models.ValidationError, 0, len(sorted))
	seen := make(map[int]bool, len(sorted))
	for _, e := range sorted {
		if seen[e.Row] {
			continue
		}
		seen[e.Row] = true
		unique = append(unique, e)
	}

	res := models.JobResult{
		Status:          state.Status,
		Succeeded:       state.Succeeded,
		Failed:          len(unique) + truncated,
		Total:           state.TotalRecords,
		Errors:          unique,
		ErrorsTruncated: truncated,
	}
	if na := res.Total - res.Succeeded - res.Failed; na > 0 {
		res.NotAttempted = na
	}
	return res
}
