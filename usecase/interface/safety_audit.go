package usecase

import (
	"context"

	"github.com/ca-srg/relaunch/domain/entity"
)

// ShutdownSafetyAudit は再起動の直前に、生きている UI を走査して中断して安全かを判定する
type ShutdownSafetyAudit interface {
	// Check は毎回新しく走査した結果を返す
	Check(ctx context.Context) entity.SafetyVerdict
}
