// Package frame reads per-file instrument metadata from neutron radiograph TIFFs.
//
// Each frame is reduced to a Record: the file's identity (path and capture
// time) plus the instrument readings stored in private TIFF tags (exposure
// time, detector, four aperture motors). Fields are explicit optional Values
// so a missing tag is never mistaken for a zero reading.
//
// Primary entry points:
//   - Extract: read one file under a Profile
//   - ExtractAll: bounded parallel extraction that drops failing files
//
// Files that lack a required tag fail with *ExtractionError; callers decide
// whether to exclude them or abort.
package frame
