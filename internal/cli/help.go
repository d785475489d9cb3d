package cli

import "io"

// ShowHelp prints usage information for the pipeline tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `goalcast pipeline
=================

Ingests NHL box scores, builds rolling features, trains the goal classifier
and ranks tonight's skaters.

Usage:
  pipeline [-log file] <command> [options]

Commands:
  ingest    [-date YYYY-MM-DD]          ingest one day (default: yesterday, UTC)
  backfill  -from YYYY-MM-DD -to YYYY-MM-DD
                                        ingest every day in the inclusive range
  dedupe                                collapse duplicate records (keep last)
  build                                 rebuild the feature and team-defense tables
  train                                 fit the classifier and write the artifact
  predict   [-date YYYY-MM-DD] [-players 8478402,8479318]
                                        rank players for a game day (default: tonight)

Configuration is read from GOALCAST_CONFIG (YAML) and GOALCAST_* variables.

Examples:
  pipeline backfill -from 2024-10-04 -to 2024-10-31
  pipeline build && pipeline train
  pipeline predict -players 8478402,8477934
`)
}
