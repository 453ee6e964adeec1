package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sternrassler/artwork-catalog/internal/testutil"
	"github.com/Sternrassler/artwork-catalog/pkg/catalog"
	"github.com/Sternrassler/artwork-catalog/pkg/pagination"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idRange(from, to int) []catalog.ID {
	ids := make([]catalog.ID, 0, to-from+1)
	for i := from; i <= to; i++ {
		ids = append(ids, catalog.ID(i))
	}
	return ids
}

func selectedRows(v View) []catalog.ID {
	ids := []catalog.ID{}
	for _, row := range v.Rows {
		if row.Selected {
			ids = append(ids, row.ID)
		}
	}
	return ids
}

func rowIDs(v View) []catalog.ID {
	ids := make([]catalog.ID, len(v.Rows))
	for i, row := range v.Rows {
		ids[i] = row.ID
	}
	return ids
}

func newTestSession(src catalog.PageSource) *Session {
	return New("test", src, DefaultConfig(), zerolog.Nop())
}

func TestSession_SelectionAcrossPagesAndBulk(t *testing.T) {
	src := testutil.NewSequentialSource(30)
	s := newTestSession(src)
	ctx := context.Background()

	view, err := s.LoadPage(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, idRange(1, 12), rowIDs(view))
	assert.Empty(t, selectedRows(view))
	assert.Equal(t, 3, view.TotalPages)
	assert.Equal(t, 30, view.TotalItems)

	view, err = s.ApplySelection(1, idRange(1, 12))
	require.NoError(t, err)
	assert.Equal(t, 12, view.SelectedCount)
	assert.Equal(t, idRange(1, 12), selectedRows(view))

	view, err = s.LoadPage(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, idRange(13, 24), rowIDs(view))
	assert.Empty(t, selectedRows(view))

	view, err = s.ApplySelection(2, nil)
	require.NoError(t, err)
	assert.Equal(t, 12, view.SelectedCount, "deselecting nothing on page 2 keeps page 1's selection")

	src.Reset()
	view, err = s.SelectFirstN(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, 5, view.SelectedCount)
	assert.Equal(t, idRange(1, 5), s.Selection())
	assert.Equal(t, []testutil.Call{{Page: 1, Size: 100}}, src.Calls())
	assert.Equal(t, 2, view.Page, "bulk selection does not navigate")
	assert.False(t, view.BulkRunning)

	view, err = s.SelectFirstN(ctx, "150")
	require.NoError(t, err)
	assert.Equal(t, 30, view.SelectedCount)

	view, err = s.LoadPage(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, idRange(1, 12), selectedRows(view))
}

func TestSession_LoadPageFailureKeepsWindow(t *testing.T) {
	src := testutil.NewSequentialSource(30)
	src.FailErr = errors.New("connection reset")
	s := newTestSession(src)
	ctx := context.Background()

	_, err := s.LoadPage(ctx, 2)
	require.NoError(t, err)
	_, err = s.ApplySelection(2, idRange(13, 15))
	require.NoError(t, err)

	src.FailPage = 3
	_, err = s.LoadPage(ctx, 3)
	require.ErrorIs(t, err, src.FailErr)

	view := s.View()
	assert.Equal(t, 2, view.Page)
	assert.Equal(t, idRange(13, 24), rowIDs(view))
	assert.Equal(t, idRange(13, 15), selectedRows(view))
	assert.Equal(t, 3, view.SelectedCount)

	// Selection events still target the page on display.
	_, err = s.ApplySelection(2, idRange(13, 13))
	require.NoError(t, err)
	assert.Equal(t, idRange(13, 13), s.Selection())
}

func TestSession_LoadPageInvalid(t *testing.T) {
	s := newTestSession(testutil.NewSequentialSource(30))

	_, err := s.LoadPage(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidPage)
}

func TestSession_ApplySelectionGuards(t *testing.T) {
	s := newTestSession(testutil.NewSequentialSource(30))

	_, err := s.ApplySelection(1, idRange(1, 2))
	assert.ErrorIs(t, err, ErrNoPage)

	_, err = s.LoadPage(context.Background(), 2)
	require.NoError(t, err)

	_, err = s.ApplySelection(1, idRange(1, 2))
	assert.ErrorIs(t, err, ErrStalePage)
	assert.Empty(t, s.Selection(), "a stale event must not touch the selection")
}

func TestSession_ApplySelectionIdempotent(t *testing.T) {
	s := newTestSession(testutil.NewSequentialSource(30))
	_, err := s.LoadPage(context.Background(), 1)
	require.NoError(t, err)

	first, err := s.ApplySelection(1, []catalog.ID{2, 4})
	require.NoError(t, err)
	second, err := s.ApplySelection(1, []catalog.ID{2, 4})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []catalog.ID{2, 4}, s.Selection())
}

func TestSession_ApplySelectionIgnoresOffPageIDs(t *testing.T) {
	s := newTestSession(testutil.NewSequentialSource(30))
	_, err := s.LoadPage(context.Background(), 2)
	require.NoError(t, err)

	view, err := s.ApplySelection(2, []catalog.ID{1, 14, 99})
	require.NoError(t, err)

	assert.Equal(t, 1, view.SelectedCount)
	assert.Equal(t, []catalog.ID{14}, s.Selection())
}

func TestSession_SelectFirstNInvalidCount(t *testing.T) {
	for _, raw := range []string{"", "abc", "0", "-3", "2.5"} {
		t.Run(raw, func(t *testing.T) {
			src := testutil.NewSequentialSource(30)
			s := newTestSession(src)
			_, err := s.LoadPage(context.Background(), 1)
			require.NoError(t, err)
			_, err = s.ApplySelection(1, idRange(1, 3))
			require.NoError(t, err)
			src.Reset()

			view, err := s.SelectFirstN(context.Background(), raw)
			assert.ErrorIs(t, err, pagination.ErrInvalidCount)
			assert.Equal(t, 3, view.SelectedCount)
			assert.Empty(t, src.Calls(), "invalid input must not reach the source")
		})
	}
}

func TestSession_SelectFirstNFailureKeepsSelection(t *testing.T) {
	src := testutil.NewSequentialSource(250)
	s := newTestSession(src)
	_, err := s.LoadPage(context.Background(), 1)
	require.NoError(t, err)
	_, err = s.ApplySelection(1, idRange(1, 3))
	require.NoError(t, err)

	src.FailPage = 2
	src.FailErr = errors.New("upstream unavailable")

	view, err := s.SelectFirstN(context.Background(), "150")
	require.ErrorIs(t, err, src.FailErr)
	assert.Equal(t, 3, view.SelectedCount)
	assert.Equal(t, idRange(1, 3), s.Selection())
	assert.False(t, s.BulkRunning())
}

func TestSession_CancelBulk(t *testing.T) {
	started := make(chan struct{})
	src := testutil.NewSequentialSource(500)
	src.BeforeFetch = func(ctx context.Context, page, size int) {
		if page == 2 && size == 100 {
			close(started)
			<-ctx.Done()
		}
	}

	s := newTestSession(src)
	_, err := s.LoadPage(context.Background(), 1)
	require.NoError(t, err)
	_, err = s.ApplySelection(1, []catalog.ID{7})
	require.NoError(t, err)

	assert.False(t, s.CancelBulk(), "nothing to cancel yet")

	done := make(chan error, 1)
	go func() {
		_, err := s.SelectFirstN(context.Background(), "400")
		done <- err
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("bulk walk did not reach page 2")
	}
	assert.True(t, s.BulkRunning())
	assert.True(t, s.CancelBulk())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("bulk walk ignored cancellation")
	}

	assert.Equal(t, []catalog.ID{7}, s.Selection(), "a cancelled walk leaves no partial selection")
	assert.False(t, s.BulkRunning())
}

func TestSession_NewBulkSupersedesRunning(t *testing.T) {
	src := testutil.NewSequentialSource(500)
	src.BeforeFetch = func(ctx context.Context, page, size int) {
		if page == 2 && size == 100 {
			<-ctx.Done()
		}
	}

	s := newTestSession(src)

	first := make(chan error, 1)
	go func() {
		_, err := s.SelectFirstN(context.Background(), "300")
		first <- err
	}()

	require.Eventually(t, s.BulkRunning, 5*time.Second, time.Millisecond)

	view, err := s.SelectFirstN(context.Background(), "10")
	require.NoError(t, err)
	assert.Equal(t, 10, view.SelectedCount)

	select {
	case err := <-first:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("first walk did not finish")
	}
}

func TestSession_ClearSelection(t *testing.T) {
	s := newTestSession(testutil.NewSequentialSource(30))
	_, err := s.LoadPage(context.Background(), 1)
	require.NoError(t, err)
	_, err = s.ApplySelection(1, idRange(1, 12))
	require.NoError(t, err)

	view := s.ClearSelection()
	assert.Zero(t, view.SelectedCount)
	assert.Empty(t, selectedRows(view))
}

func TestSession_ViewWithoutPage(t *testing.T) {
	s := newTestSession(testutil.NewSequentialSource(30))

	view := s.View()
	assert.Zero(t, view.Page)
	assert.Equal(t, DefaultPageSize, view.PageSize)
	assert.NotNil(t, view.Rows)
	assert.Empty(t, view.Rows)
}

func TestSession_ViewWithoutPagination(t *testing.T) {
	src := testutil.NewSequentialSource(30)
	src.OmitPagination = true
	s := newTestSession(src)

	view, err := s.LoadPage(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, view.TotalPages)
	assert.Zero(t, view.TotalItems)
	assert.Len(t, view.Rows, 12)
}
