package reservation

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
)

// dbError 记录不存在时返回领域错误，其余视为数据库错误
func dbError(err error, notFound *errors.AppError) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return errors.ErrDatabaseError.WithError(err)
}

func parseDate(invalid *errors.AppError, field, value string) (time.Time, error) {
	d, err := utils.ParseDate(value)
	if err != nil {
		return time.Time{}, invalid.WithMessagef("invalid %s: %v", field, err)
	}
	return d, nil
}

// describeLine 历史记录中的明细描述
func describeLine(l *models.ReservationLine) string {
	return fmt.Sprintf("%s (%s) on %s, %d room(s) at %s",
		l.RoomType, l.Regimen, utils.FormatDate(l.Date), l.RoomCount, l.Price.StringFixed(2))
}

// diffFields 宽松比较新旧快照，只比较两边都存在的字段
func diffFields(fields []string, before, after map[string]string) []models.FieldChange {
	var changes []models.FieldChange
	for _, f := range fields {
		oldVal, ok := before[f]
		if !ok {
			continue
		}
		newVal, ok := after[f]
		if !ok || oldVal == newVal {
			continue
		}
		changes = append(changes, models.FieldChange{Field: f, Old: oldVal, New: newVal})
	}
	return changes
}

func describeChanges(changes []models.FieldChange) []string {
	parts := make([]string, 0, len(changes))
	for _, c := range changes {
		parts = append(parts, fmt.Sprintf("Field '%s' changed from '%s' to '%s'", c.Field, c.Old, c.New))
	}
	return parts
}

func joinLines(parts []string) string {
	return strings.Join(parts, "\n")
}

func int64String(v *int64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}

func moneyString(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// sumActiveLines 有效明细金额合计
func sumActiveLines(lines []*models.ReservationLine) decimal.Decimal {
	amounts := make([]decimal.Decimal, 0, len(lines))
	for _, l := range lines {
		if l.Active {
			amounts = append(amounts, l.Amount())
		}
	}
	return utils.SumMoney(amounts...)
}
