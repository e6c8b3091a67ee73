// Package tallyservice aggregates accepted ballots and paper section reports
// into hash-chained tally snapshots for each election scope.
//
// Ballots are deduplicated per section by content hash and never change once
// stored; annulments and slate disqualifications are separate records that
// the next snapshot folds in. A final snapshot needs every registered
// section reported and no open case on the scope, and freezes the scope
// first. Homologation seals the latest final snapshot, after which nothing
// in the scope changes.
package tallyservice
