/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package datasink_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Seednode/dyadic/datasink"
	"github.com/Seednode/dyadic/timeline"
	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var row = []string{"P1", "4", "director", "5120", "P2", "images/object4.jpg", "", "zopekil", "zop", "zopekil", "812"}

func TestFileSink_WritesHeaderAndRows(t *testing.T) {
	dir := t.TempDir()

	sink, err := datasink.OpenFile(filepath.Join(dir, "data"), "P1")
	require.NoError(t, err)

	rec := datasink.NewRecorder(nil, sink)
	rec.AppendRow(timeline.Header)
	rec.AppendRow(row)
	require.NoError(t, rec.Close())

	assert.Equal(t, filepath.Join(dir, "data", "di_P1.csv"), sink.Path())

	f, err := os.Open(sink.Path())
	require.NoError(t, err)
	defer f.Close()

	got, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{timeline.Header, row}, got)
}

func TestFileSink_AppendsAcrossOpens(t *testing.T) {
	dir := t.TempDir()

	for range 2 {
		sink, err := datasink.OpenFile(dir, "P1")
		require.NoError(t, err)
		require.NoError(t, sink.WriteRow(context.Background(), row))
		require.NoError(t, sink.Close())
	}

	data, err := os.ReadFile(filepath.Join(dir, datasink.FileName("P1")))
	require.NoError(t, err)

	got, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRedisSink_PushesRows(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	sink := datasink.NewRedisSinkFromClient(client, "P1")
	require.NoError(t, sink.Ping(context.Background()))
	assert.Equal(t, "dyadic:rows:P1", sink.Key())

	rec := datasink.NewRecorder(nil, sink)
	rec.AppendRow(timeline.Header)
	rec.AppendRow(row)
	require.NoError(t, rec.Close())

	got, err := mr.List("dyadic:rows:P1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "participant_id,trial_index,trial_type,time_elapsed,partner_id,stimulus,observation_label,button1,button2,button_selected,rt", got[0])
	assert.Equal(t, "P1,4,director,5120,P2,images/object4.jpg,,zopekil,zop,zopekil,812", got[1])

	require.NoError(t, client.Ping(context.Background()).Err(), "sink must not close a borrowed client")
}

func TestRedisSink_KeyPrefix(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	sink := datasink.NewRedisSink(mr.Addr(), "P7", datasink.WithKeyPrefix("exp1:"))
	require.NoError(t, sink.WriteRow(context.Background(), row))
	require.NoError(t, sink.Close())

	got, err := mr.List("exp1:P7")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRecorder_ReportsSinkErrors(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	sink := datasink.NewRedisSink(mr.Addr(), "P1")
	mr.Close()

	var mu sync.Mutex
	var errs []error
	rec := datasink.NewRecorder(func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}, sink)

	rec.AppendRow(row)
	_ = rec.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, errs, 1)
}

func TestRecorder_DropsAfterClose(t *testing.T) {
	var dropped error
	rec := datasink.NewRecorder(func(err error) { dropped = err })

	require.NoError(t, rec.Close())
	require.NoError(t, rec.Close())

	rec.AppendRow(row)
	assert.True(t, errors.Is(dropped, datasink.ErrDropped))
}
