package model

import "time"

// LifecycleState is the soft-delete state of a persisted record.
type LifecycleState uint8

const (
    LifecycleActive LifecycleState = iota
    LifecycleDeleted
)

func (s LifecycleState) String() string {
    if s == LifecycleDeleted {
        return "DELETED"
    }
    return "ACTIVE"
}

// Lifecycle is embedded by every persisted entity.  DeletedAt is only
// meaningful when State is LifecycleDeleted.  Repositories map it to and from
// a nullable deleted_at column so nothing above them checks for NULL.
//
// Fields:
//  State     – Active or Deleted.
//  CreatedAt – set once by OnCreate.
//  UpdatedAt – refreshed by OnCreate and every OnUpdate.
//  DeletedAt – when the record was soft-deleted.
type Lifecycle struct {
    State     LifecycleState
    CreatedAt time.Time
    UpdatedAt time.Time
    DeletedAt time.Time
}

// OnCreate stamps a freshly built record.  Owning services call it right
// before the record is first persisted.
func (l *Lifecycle) OnCreate(now time.Time) {
    now = now.UTC()
    l.State = LifecycleActive
    l.CreatedAt = now
    l.UpdatedAt = now
    l.DeletedAt = time.Time{}
}

// OnUpdate stamps a mutation.
func (l *Lifecycle) OnUpdate(now time.Time) {
    l.UpdatedAt = now.UTC()
}

// SoftDelete moves the record to the Deleted state.  Deleting twice keeps the
// first deletion time.
func (l *Lifecycle) SoftDelete(now time.Time) {
    if l.State == LifecycleDeleted {
        return
    }
    l.State = LifecycleDeleted
    l.DeletedAt = now.UTC()
    l.OnUpdate(now)
}

func (l Lifecycle) IsDeleted() bool { return l.State == LifecycleDeleted }

// DeletedAtPtr returns nil for active records; used when writing the
// nullable column.
func (l Lifecycle) DeletedAtPtr() *time.Time {
    if l.State != LifecycleDeleted {
        return nil
    }
    t := l.DeletedAt
    return &t
}

// SetDeletedAt is the inverse of DeletedAtPtr, used when scanning rows.
func (l *Lifecycle) SetDeletedAt(t *time.Time) {
    if t == nil {
        l.State = LifecycleActive
        l.DeletedAt = time.Time{}
        return
    }
    l.State = LifecycleDeleted
    l.DeletedAt = t.UTC()
}
