package recorder

// NoopRecorder is used when no database path is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *RunRecord) error { return nil }
func (n *NoopRecorder) RecordMemberStats(_ string, _ []MemberStat) error { return nil }
func (n *NoopRecorder) RecordPicks(_ string, _ []PickRecord) error { return nil }
func (n *NoopRecorder) RecordEquity(_ string, _ []EquityPoint) error { return nil }
func (n *NoopRecorder) Close() error { return nil }
