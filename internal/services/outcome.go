package services

import (
	"fmt"
	"time"

	"github.com/bionicotaku/attachment-ingest/internal/models/vo"
)

// Stage 标识流水线中的一个有序步骤。
type Stage string

const (
	StageParse          Stage = "parse"
	StageWorkspace      Stage = "workspace"
	StageDownload       Stage = "download"
	StageNormalize      Stage = "normalize"
	StageCompress       Stage = "compress"
	StageUploadFull     Stage = "upload_full"
	StageThumbnail      Stage = "thumbnail"
	StageUploadThumb    Stage = "upload_thumb"
	StageSign           Stage = "sign"
	StageLookup         Stage = "lookup"
	StageAppend         Stage = "append"
	StageDeleteOriginal Stage = "delete_original"
)

// StageError 记录失败所在的步骤及其原因。
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// OutcomeStatus 为一次调用的终态。
type OutcomeStatus string

const (
	StatusSucceeded OutcomeStatus = "succeeded"
	StatusSkipped   OutcomeStatus = "skipped"
	StatusFailed    OutcomeStatus = "failed"
)

// Outcome 为 Process 的显式结果，调用方与测试可直接断言。
type Outcome struct {
	InvocationID string
	Status       OutcomeStatus
	Reason       vo.SkipReason
	Stage        Stage
	Err          error
	Decision     vo.ProcessingDecision
	Identity     vo.ObjectIdentity
	Appended     int
	Duration     time.Duration
}

// Failed 判断是否失败。
func (o Outcome) Failed() bool { return o.Status == StatusFailed }

func (o Outcome) String() string {
	switch o.Status {
	case StatusSkipped:
		return fmt.Sprintf("skipped(%s)", o.Reason)
	case StatusFailed:
		return fmt.Sprintf("failed(%s, %v)", o.Stage, o.Err)
	default:
		return string(o.Status)
	}
}
