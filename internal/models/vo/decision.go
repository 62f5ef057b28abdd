package vo

// DecisionKind 区分分类结果。
type DecisionKind string

const (
	DecisionSkip          DecisionKind = "skip"
	DecisionProcessImage  DecisionKind = "image"
	DecisionProcessOpaque DecisionKind = "opaque"
)

// SkipReason 说明事件被跳过的原因。
type SkipReason string

const (
	SkipNone             SkipReason = ""
	SkipDeletionEcho     SkipReason = "deletion-echo"
	SkipMetadataOnly     SkipReason = "metadata-only-touch"
	SkipExcludedFilename SkipReason = "excluded-filename"
	SkipAlreadyProcessed SkipReason = "already-processed"
)

// ProcessingDecision 为事件分类器的输出。
type ProcessingDecision struct {
	Kind   DecisionKind
	Reason SkipReason
}

// Skip 构造跳过决策。
func Skip(reason SkipReason) ProcessingDecision {
	return ProcessingDecision{Kind: DecisionSkip, Reason: reason}
}

// ProcessAsImage 构造图片处理决策。
func ProcessAsImage() ProcessingDecision {
	return ProcessingDecision{Kind: DecisionProcessImage}
}

// ProcessAsOpaqueFile 构造非图片处理决策。
func ProcessAsOpaqueFile() ProcessingDecision {
	return ProcessingDecision{Kind: DecisionProcessOpaque}
}

// Skipped 判断是否为跳过决策。
func (d ProcessingDecision) Skipped() bool {
	return d.Kind == DecisionSkip
}
