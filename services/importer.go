package services

import (
	"context"

	"github.com/google/uuid"

	"attraction-insights/models"
	"attraction-insights/utils"
)

// AttractionSaver persists cleaned batches; each Save call is atomic. With
// replace the store is emptied inside the same transaction.
type AttractionSaver interface {
	Save(ctx context.Context, records []*models.Attraction, replace bool) (int, error)
}

// SourceReader loads the raw records of one source file.
type SourceReader func(path string) ([]models.RawRecord, error)

// Importer runs read → clean → persist with one batch per source file.
// Reading and cleaning run in parallel; batches are persisted one after
// another in path order so the first file wins a duplicate (name, address).
type Importer struct {
	cleaner *Cleaner
	saver   AttractionSaver
	read    SourceReader
	workers int
	logger  *utils.Logger
}

func NewImporter(cleaner *Cleaner, saver AttractionSaver, read SourceReader, workers int, logger *utils.Logger) *Importer {
	if workers < 1 {
		workers = 1
	}
	return &Importer{cleaner: cleaner, saver: saver, read: read, workers: workers, logger: logger}
}

type decodedBatch struct {
	res     models.BatchResult
	records []*models.Attraction
}

// Import processes every path as its own batch. With replace the store is
// emptied in the transaction of the first batch that persists, so a run in
// which no batch succeeds leaves the existing rows alone. Batch failures are
// reported per batch and never stop the others.
func (i *Importer) Import(ctx context.Context, paths []string, replace bool) (*models.ImportReport, error) {
	batches := make([]decodedBatch, len(paths))
	pool := utils.NewWorkerPool(i.workers, 0)
	for idx, path := range paths {
		pool.Submit(func() {
			batches[idx] = i.decode(ctx, path)
		})
	}
	pool.Wait()

	pendingClear := replace
	seen := make(map[string]struct{})
	report := &models.ImportReport{Batches: make([]models.BatchResult, len(paths))}
	for idx := range batches {
		b := &batches[idx]
		if b.res.Err == "" {
			records := firstOccurrences(b.records, seen)
			if err := i.persist(ctx, &b.res, records, pendingClear); err == nil {
				if pendingClear {
					i.logger.Info("[importer] Cleared existing attractions")
					pendingClear = false
				}
				for _, r := range records {
					seen[attractionKey(r)] = struct{}{}
				}
			}
		}

		report.Batches[idx] = b.res
		report.RawRecords += b.res.RawRecords
		if b.res.Err != "" {
			report.FailedBatches++
			continue
		}
		report.ProcessedBatches++
		report.StoredRecords += b.res.Stored
	}
	if pendingClear {
		i.logger.Warn("[importer] No batch persisted, existing attractions kept")
	}

	i.logger.Info("[importer] Import finished: %d batches processed, %d failed, %d/%d records stored",
		report.ProcessedBatches, report.FailedBatches, report.StoredRecords, report.RawRecords)
	return report, nil
}

func (i *Importer) decode(ctx context.Context, path string) decodedBatch {
	b := decodedBatch{res: models.BatchResult{BatchID: uuid.NewString(), Source: path}}

	if err := ctx.Err(); err != nil {
		b.res.Err = err.Error()
		return b
	}

	raw, err := i.read(path)
	if err != nil {
		i.logger.With("batch_id", b.res.BatchID).Error("[importer] Reading %s failed: %v", path, err)
		b.res.Err = err.Error()
		return b
	}
	b.res.RawRecords = len(raw)
	b.records = i.cleaner.Clean(raw)
	return b
}

func (i *Importer) persist(ctx context.Context, res *models.BatchResult, records []*models.Attraction, replace bool) error {
	log := i.logger.With("batch_id", res.BatchID)

	if err := ctx.Err(); err != nil {
		res.Err = err.Error()
		return err
	}

	stored, err := i.saver.Save(ctx, records, replace)
	if err != nil {
		log.Error("[importer] Persisting %s failed, batch rolled back: %v", res.Source, err)
		res.Err = err.Error()
		return err
	}
	res.Stored = stored

	log.Info("[importer] %s: %d raw → %d stored", res.Source, res.RawRecords, res.Stored)
	return nil
}

// firstOccurrences drops records whose key an earlier batch already stored.
func firstOccurrences(records []*models.Attraction, seen map[string]struct{}) []*models.Attraction {
	if len(seen) == 0 {
		return records
	}
	out := make([]*models.Attraction, 0, len(records))
	for _, r := range records {
		if _, dup := seen[attractionKey(r)]; !dup {
			out = append(out, r)
		}
	}
	return out
}

func attractionKey(r *models.Attraction) string {
	return r.Name + "\x00" + r.Address
}
