package pg

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/Calmero107/volunteer/internal/apperr"
	"github.com/Calmero107/volunteer/internal/event"
)

var _ event.Store = (*EventStore)(nil)

// EventStore implements event.Store on PostgreSQL.
type EventStore struct{ db *sql.DB }

const eventColumns = `id, title, description, location, starts_at, registration_deadline,
	max_participants, status, creator_id, approved_by, approved_at, created_at, updated_at`

func (s *EventStore) Create(ctx context.Context, ev *event.Event) error {
	_, err := s.db.ExecContext(ctx,
		`insert into events(`+eventColumns+`) values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		ev.ID, ev.Title, ev.Description, ev.Location, ev.StartsAt, ev.RegistrationDeadline,
		ev.MaxParticipants, string(ev.Status), ev.CreatorID,
		nullString(ev.ApprovedBy), ev.ApprovedAt, ev.CreatedAt, ev.UpdatedAt,
	)
	return err
}

func (s *EventStore) Find(ctx context.Context, id string) (*event.Event, error) {
	row := s.db.QueryRowContext(ctx, `select `+eventColumns+` from events where id=$1`, id)
	ev, err := scanEvent(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.ErrNotFound, "event "+id)
	}
	return ev, err
}

func (s *EventStore) Update(ctx context.Context, ev *event.Event) error {
	res, err := s.db.ExecContext(ctx,
		`update events set title=$2, description=$3, location=$4, starts_at=$5,
		 registration_deadline=$6, max_participants=$7, status=$8,
		 approved_by=$9, approved_at=$10, updated_at=$11 where id=$1`,
		ev.ID, ev.Title, ev.Description, ev.Location, ev.StartsAt,
		ev.RegistrationDeadline, ev.MaxParticipants, string(ev.Status),
		nullString(ev.ApprovedBy), ev.ApprovedAt, ev.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return requireRow(res, "event "+ev.ID)
}

func (s *EventStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from events where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res, "event "+id)
}

func (s *EventStore) List(ctx context.Context, f event.Filter) ([]*event.Event, int, error) {
	where, args := eventFilterSQL(f)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from events`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `select ` + eventColumns + ` from events` + where +
		` order by starts_at asc limit $` + strconv.Itoa(len(args)+1) +
		` offset $` + strconv.Itoa(len(args)+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var res []*event.Event
	for rows.Next() {
		ev, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, ev)
	}
	return res, total, rows.Err()
}

func eventFilterSQL(f event.Filter) (string, []any) {
	where := ""
	var args []any
	add := func(cond string, val any) {
		args = append(args, val)
		clause := cond + "$" + strconv.Itoa(len(args))
		if where == "" {
			where = " where " + clause
		} else {
			where += " and " + clause
		}
	}
	if f.Status != "" {
		add("status=", string(f.Status))
	}
	if f.CreatorID != "" {
		add("creator_id=", f.CreatorID)
	}
	return where, args
}

func scanEvent(scan func(...any) error) (*event.Event, error) {
	var (
		ev         event.Event
		status     string
		approvedBy sql.NullString
	)
	err := scan(&ev.ID, &ev.Title, &ev.Description, &ev.Location, &ev.StartsAt,
		&ev.RegistrationDeadline, &ev.MaxParticipants, &status, &ev.CreatorID,
		&approvedBy, &ev.ApprovedAt, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return nil, err
	}
	ev.Status = event.Status(status)
	ev.ApprovedBy = approvedBy.String
	return &ev, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
