package services

import "github.com/pagecraft/action-service/models"

// CollectForm normalizes the serialized fields of the active form into a
// FormSnapshot. A field's key is its name, falling back to its id; a field
// with neither is skipped. When two fields resolve to the same key the
// later one wins.
func CollectForm(fields []models.FormField) models.FormSnapshot {
	snapshot := make(models.FormSnapshot, len(fields))
	for _, f := range fields {
		key := f.Name
		if key == "" {
			key = f.ID
		}
		if key == "" {
			continue
		}
		snapshot[key] = f.Value
	}
	return snapshot
}
