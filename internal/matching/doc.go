// Package matching groups sample frames into acquisition configurations and
// attaches the open-beam and dark-current frames that calibrate them.
//
// Partition builds an Index keyed by exposure time; within one exposure time
// samples whose instrument readings agree within Tolerance share a
// Configuration. Match then scans calibration records, gated on exposure
// time and compared against each configuration's representative readings,
// and trims the results with optional count and time-offset caps.
//
// The Index is built once per run and mutated only by Match. Finding no
// calibration frames is a normal outcome: the matched lists are simply
// empty, and callers decide whether that is fatal.
package matching
