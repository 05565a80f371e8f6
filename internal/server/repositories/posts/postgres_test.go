package posts

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/blogd/internal/common"
	"github.com/dmitrijs2005/blogd/internal/server/models"
	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	insertQ = `(?s)^WITH\s+p\s+AS\s*\(\s*INSERT\s+INTO\s+posts\s*\(title,\s*content,\s*author_id\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\).*\)\s*SELECT\s+p\.id.*FROM\s+p\s+JOIN\s+users\s+u\s+ON\s+u\.id\s*=\s*p\.author_id\s*$`
	findQ   = `(?s)^SELECT\s+p\.id,\s*p\.title,\s*p\.content,\s*p\.author_id,\s*u\.username,\s*p\.created_at,\s*p\.updated_at\s+FROM\s+posts\s+p\s+JOIN\s+users\s+u\s+ON\s+u\.id\s*=\s*p\.author_id\s+WHERE\s+p\.id\s*=\s*\$1\s*$`
	updateQ = `(?s)^WITH\s+p\s+AS\s*\(\s*UPDATE\s+posts\s+SET\s+title\s*=\s*COALESCE\(\$3::text,\s*title\).*WHERE\s+id\s*=\s*\$1\s+AND\s+author_id\s*=\s*\$2.*$`
	deleteQ = `^DELETE\s+FROM\s+posts\s+WHERE\s+id\s*=\s*\$1\s+AND\s+author_id\s*=\s*\$2$`
	listQ   = `(?s)^SELECT\s+p\.id.*FROM\s+posts\s+p\s+JOIN\s+users\s+u.*ORDER\s+BY\s+p\.created_at\s+DESC,\s*p\.id\s+DESC\s+LIMIT\s+\$1\s+OFFSET\s+\$2\s*$`
	countQ  = `^SELECT\s+COUNT\(\*\)\s+FROM\s+posts$`
)

var (
	columns = []string{"id", "title", "content", "author_id", "username", "created_at", "updated_at"}
	ts      = time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func strPtr(s string) *string { return &s }

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).
		WithArgs("Hello", "World", int64(3)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(10), "Hello", "World", int64(3), "ivan", ts, ts))

	got, err := repo.Create(context.Background(), &models.Post{Title: "Hello", Content: "World", AuthorID: 3})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	want := &models.Post{ID: 10, Title: "Hello", Content: "World", AuthorID: 3, AuthorUsername: "ivan", CreatedAt: ts, UpdatedAt: ts}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected post (-want +got):\n%s", diff)
	}
}

func TestCreate_MissingAuthor(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).
		WithArgs("t", "c", int64(99)).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	_, err := repo.Create(context.Background(), &models.Post{Title: "t", Content: "c", AuthorID: 99})
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestFindByID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(findQ).WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(10), "T", "C", int64(3), "ivan", ts, ts))
	got, err := repo.FindByID(context.Background(), 10)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if got.ID != 10 || got.AuthorUsername != "ivan" {
		t.Fatalf("unexpected post: %+v", got)
	}

	mock.ExpectQuery(findQ).WithArgs(int64(11)).WillReturnError(sql.ErrNoRows)
	if _, err := repo.FindByID(context.Background(), 11); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}

	mock.ExpectQuery(findQ).WithArgs(int64(12)).WillReturnError(errors.New("db err"))
	if _, err := repo.FindByID(context.Background(), 12); err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestUpdate_PartialPatch(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	later := ts.Add(time.Minute)
	mock.ExpectQuery(updateQ).
		WithArgs(int64(10), int64(3), "New title", nil).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(10), "New title", "C", int64(3), "ivan", ts, later))

	got, err := repo.Update(context.Background(), 10, 3, models.PostPatch{Title: strPtr("New title")})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if got.Title != "New title" || got.Content != "C" || !got.UpdatedAt.Equal(later) {
		t.Fatalf("unexpected post: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestUpdate_NotOwnedOrMissing(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(updateQ).
		WithArgs(int64(10), int64(4), nil, "x").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Update(context.Background(), 10, 4, models.PostPatch{Content: strPtr("x")})
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(deleteQ).WithArgs(int64(1), int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.Delete(context.Background(), 1, 2); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	mock.ExpectExec(deleteQ).WithArgs(int64(1), int64(3)).WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.Delete(context.Background(), 1, 3); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}

	mock.ExpectExec(deleteQ).WithArgs(int64(1), int64(4)).WillReturnError(errors.New("db err"))
	if err := repo.Delete(context.Background(), 1, 4); err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestList(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(listQ).WithArgs(2, 4).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(7), "b", "bb", int64(1), "ivan", ts.Add(time.Second), ts.Add(time.Second)).
			AddRow(int64(6), "a", "aa", int64(2), "olga", ts, ts))

	got, err := repo.List(context.Background(), 2, 4)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(got) != 2 || got[0].ID != 7 || got[1].AuthorUsername != "olga" {
		t.Fatalf("unexpected posts: %+v", got)
	}
}

func TestList_Errors(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(listQ).WithArgs(10, 0).WillReturnError(errors.New("db err"))
	if _, err := repo.List(context.Background(), 10, 0); err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}

	mock.ExpectQuery(listQ).WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(7), "b", "bb", int64(1), "ivan", ts, ts).
			RowError(0, errors.New("row broke")))
	if _, err := repo.List(context.Background(), 10, 0); err == nil {
		t.Fatal("expected row error")
	}
}

func TestCount(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(countQ).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))
	n, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count error: %v", err)
	}
	if n != 42 {
		t.Fatalf("unexpected count: %d", n)
	}

	mock.ExpectQuery(countQ).WillReturnError(errors.New("db err"))
	if _, err := repo.Count(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
