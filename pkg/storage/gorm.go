package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/flowforge/dagmanager/pkg/core"
)

// dagRecord is the durable row for one DAG checkpoint. The same schema
// backs both the live table and the failed table; only the table name
// differs (see GormDagStateStore.table).
type dagRecord struct {
	Key             string `gorm:"primaryKey;size:255"`
	FlowGroup       string `gorm:"index;size:255"`
	FlowName        string `gorm:"index;size:255"`
	FlowExecutionId int64  `gorm:"index"`
	Payload         []byte `gorm:"type:bytes"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

// GormDagStateStore implements core.DagStateStore over GORM. Construct
// one for the live store and a second, pointed at a different table via
// WithTable, for the failed-dag overlay.
type GormDagStateStore struct {
	db    *gorm.DB
	table string
}

// NewGormDagStateStore creates a live-table DagStateStore ("dags").
func NewGormDagStateStore(db *gorm.DB) *GormDagStateStore {
	return &GormDagStateStore{db: db, table: "dags"}
}

// NewFailedGormDagStateStore creates a DagStateStore over the
// failed-dag table ("failed_dags"), the failedDagStateStore.* overlay
// from the design's configuration keys.
func NewFailedGormDagStateStore(db *gorm.DB) *GormDagStateStore {
	return &GormDagStateStore{db: db, table: "failed_dags"}
}

// Migrate creates the backing table.
func (s *GormDagStateStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).Table(s.table).AutoMigrate(&dagRecord{})
}

// WriteCheckpoint upserts dag's serialized form.
func (s *GormDagStateStore) WriteCheckpoint(ctx context.Context, dag *core.Dag) error {
	payload, err := json.Marshal(dag)
	if err != nil {
		return err
	}
	rec := dagRecord{
		Key:             dag.Id.String(),
		FlowGroup:       dag.Id.FlowGroup,
		FlowName:        dag.Id.FlowName,
		FlowExecutionId: dag.Id.FlowExecutionId,
		Payload:         payload,
	}
	return s.db.WithContext(ctx).Table(s.table).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&rec).Error
}

// GetDag retrieves and deserializes one DAG.
func (s *GormDagStateStore) GetDag(ctx context.Context, id core.DagId) (*core.Dag, error) {
	var rec dagRecord
	err := s.db.WithContext(ctx).Table(s.table).First(&rec, "key = ?", id.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrDagNotFound
	}
	if err != nil {
		return nil, err
	}
	dag := core.NewDag(id, "")
	if err := json.Unmarshal(rec.Payload, dag); err != nil {
		return nil, err
	}
	return dag, nil
}

// GetDags retrieves and deserializes every DAG in the table.
func (s *GormDagStateStore) GetDags(ctx context.Context) ([]*core.Dag, error) {
	var recs []dagRecord
	if err := s.db.WithContext(ctx).Table(s.table).Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*core.Dag, 0, len(recs))
	for _, rec := range recs {
		dag := &core.Dag{}
		if err := json.Unmarshal(rec.Payload, dag); err != nil {
			return nil, err
		}
		out = append(out, dag)
	}
	return out, nil
}

// GetDagIds lists the keys present without deserializing payloads.
func (s *GormDagStateStore) GetDagIds(ctx context.Context) ([]core.DagId, error) {
	var recs []dagRecord
	if err := s.db.WithContext(ctx).Table(s.table).Select("flow_group", "flow_name", "flow_execution_id").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]core.DagId, 0, len(recs))
	for _, rec := range recs {
		out = append(out, core.DagId{FlowGroup: rec.FlowGroup, FlowName: rec.FlowName, FlowExecutionId: rec.FlowExecutionId})
	}
	return out, nil
}

// CleanUp deletes id's row.
func (s *GormDagStateStore) CleanUp(ctx context.Context, id core.DagId) error {
	return s.db.WithContext(ctx).Table(s.table).Delete(&dagRecord{}, "key = ?", id.String()).Error
}

// actionRecord is the durable row for one pending DagAction. The four
// columns (FlowGroup, FlowName, FlowExecutionId, Type) form the primary key: a
// given DAG has at most one pending action of a given type at a time.
type actionRecord struct {
	FlowGroup       string `gorm:"primaryKey;size:255"`
	FlowName        string `gorm:"primaryKey;size:255"`
	FlowExecutionId int64  `gorm:"primaryKey"`
	Type            string `gorm:"primaryKey;size:32"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

func (actionRecord) TableName() string { return "dag_actions" }

// GormDagActionStore implements core.DagActionStore over GORM.
type GormDagActionStore struct {
	db *gorm.DB
}

// NewGormDagActionStore creates a DagActionStore over db.
func NewGormDagActionStore(db *gorm.DB) *GormDagActionStore {
	return &GormDagActionStore{db: db}
}

// Migrate creates the backing table.
func (s *GormDagActionStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&actionRecord{})
}

// AddDagAction durably records a pending action for id. Idempotent:
// re-adding the same (id, type) pair is a no-op.
func (s *GormDagActionStore) AddDagAction(ctx context.Context, id core.DagId, action core.DagActionType) error {
	rec := actionRecord{
		FlowGroup:       id.FlowGroup,
		FlowName:        id.FlowName,
		FlowExecutionId: id.FlowExecutionId,
		Type:            string(action),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
}

// DeleteDagAction removes a recorded action once it has been applied.
func (s *GormDagActionStore) DeleteDagAction(ctx context.Context, id core.DagId, action core.DagActionType) error {
	return s.db.WithContext(ctx).Delete(&actionRecord{}, "flow_group = ? AND flow_name = ? AND flow_execution_id = ? AND type = ?",
		id.FlowGroup, id.FlowName, id.FlowExecutionId, string(action)).Error
}

// Exists reports whether action is currently recorded.
func (s *GormDagActionStore) Exists(ctx context.Context, id core.DagId, action core.DagActionType) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&actionRecord{}).Where(
		"flow_group = ? AND flow_name = ? AND flow_execution_id = ? AND type = ?",
		id.FlowGroup, id.FlowName, id.FlowExecutionId, string(action),
	).Count(&count).Error
	return count > 0, err
}

// PendingActions returns every recorded action, oldest first, so a
// recovering manager replays them in submission order.
func (s *GormDagActionStore) PendingActions(ctx context.Context) ([]core.DagAction, error) {
	var recs []actionRecord
	if err := s.db.WithContext(ctx).Order("created_at asc").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]core.DagAction, 0, len(recs))
	for _, rec := range recs {
		out = append(out, core.DagAction{
			DagId: core.DagId{FlowGroup: rec.FlowGroup, FlowName: rec.FlowName, FlowExecutionId: rec.FlowExecutionId},
			Type:  core.DagActionType(rec.Type),
		})
	}
	return out, nil
}
