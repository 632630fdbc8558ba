// Package importers loads book catalogs from JSON Lines files.
//
// # Format
//
// Each non-empty line is one JSON object. Lines starting with # are ignored.
//
//	{"isbn":"9780000000001","title":"Fantasy Realm","authors":["A. Writer"],
//	 "genres":["Fantasy"],"publication_date":"2019","text_file":"texts/realm.txt"}
//
// Books are created through the catalog service, so content is stored and
// paginated the same way as books added by an admin. Records whose ISBN is
// already in the catalog are counted as skipped. A malformed record is counted
// as failed with its line number and the run continues.
//
// # Example Usage
//
//	pipeline := importers.NewPipeline(catalogService)
//	result, err := pipeline.ImportFile(ctx, "catalog.jsonl")
package importers
