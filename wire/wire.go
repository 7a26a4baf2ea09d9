// Package wire holds the line-oriented protocol tokens shared across the
// framing, dispatcher, ready-monitor, and numbered-command layers. The
// original sources repeat these as string literals in every file that
// needs them; this factors them once.
package wire

// Framing tokens (frame.Parser), see spec.md §4.2.
const (
	Raw    = "RAW"
	EndRaw = "ENDRAW"
)

// Numbered-command tokens, see spec.md §4.4b and §6.
const (
	Ready       = "READY"
	Command     = "COMMAND"
	EndCommand  = "ENDCOMMAND"
	Results     = "RESULTS"
	EndResults  = "ENDRESULTS"
	EventMsg    = "EVENTMSG"
	Done        = "DONE"
)

// RunScript sub-protocol tokens, grounded in
// original_source/cpp/test-harness/common/th-run-script-handler.h; see
// SPEC_FULL.md's "numbered receiver side completeness" section.
const (
	RunScript    = "RUNSCRIPT"
	EndRunScript = "ENDRUNSCRIPT"
	Started      = "STARTED"
	Finished     = "FINISHED"
	// Failed is the RESULTS leading token for a SUT or script failure,
	// see spec.md §7's "SUT failure" taxonomy row.
	Failed = "FAILED"
)

// Root-mode tokens, see SPEC_FULL.md's "Root-mode commands" section.
// HarnessInfo is the exception: it is not sent root-mode but as the
// first token of a COMMAND body, answered by a numbered.SubHandler.
const (
	HarnessInfo = "HARNESS_INFO"
	Shutdown    = "SHUTDOWN"
	Clearcache  = "CLEARCACHE"
)
