package tile

import (
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseNotifiesOnEverySetter(t *testing.T) {
	var b Base
	var calls atomic.Int32
	b.SetNotify(func() { calls.Add(1) })

	b.SetText("hi")
	b.SetTextColor(color.White)
	b.SetBackgroundColor(color.RGBA{R: 10, A: 255})
	b.SetFont("Mono")
	b.SetFontSize(20)
	b.SetImage(image.NewRGBA(image.Rect(0, 0, 2, 2)))
	b.SetImagePadding(4)
	b.SetIndicator(true)
	b.SetIndicatorColor(color.Black)
	b.ClearText()

	assert.Equal(t, int32(10), calls.Load())
}

func TestBaseWithoutSinkDoesNotPanic(t *testing.T) {
	var b Base
	assert.NotPanics(t, func() { b.SetText("quiet") })

	text, ok := b.Text()
	assert.True(t, ok)
	assert.Equal(t, "quiet", text)
}

func TestBaseDisplaySnapshot(t *testing.T) {
	var b Base
	d := b.Display()
	assert.Nil(t, d.Text)
	assert.Nil(t, d.FontSize)
	assert.False(t, d.Indicator)

	b.SetText("1")
	b.SetFontSize(24)
	b.SetBackgroundColor(color.RGBA{G: 128, A: 255})
	d = b.Display()
	require.NotNil(t, d.Text)
	assert.Equal(t, "1", *d.Text)
	assert.Equal(t, 24.0, *d.FontSize)
	assert.Equal(t, color.RGBA{G: 128, A: 255}, *d.BackgroundColor)

	b.SetText("2")
	assert.Equal(t, "1", *d.Text, "snapshots must not alias live state")
}

func TestBaseNotifyRunsOutsideLock(t *testing.T) {
	var b Base
	var seen string
	b.SetNotify(func() {
		// Reading from inside the sink would deadlock if the lock were held.
		seen = *b.Display().Text
	})
	b.SetText("done")
	assert.Equal(t, "done", seen)
}

func TestBaseConcurrentSetters(t *testing.T) {
	var b Base
	var calls atomic.Int32
	b.SetNotify(func() { calls.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b.SetIndicator(j%2 == 0)
				_ = b.Display()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(400), calls.Load())
}

func TestBaseSatisfiesTile(t *testing.T) {
	var tl Tile = &Base{}
	assert.NoError(t, tl.Init(t.Context()))
	assert.NoError(t, tl.PressDown(t.Context()))
	assert.NoError(t, tl.PressUp(t.Context()))
	assert.NoError(t, tl.DeInit(t.Context()))
	assert.Empty(t, tl.DescribeSettings())

	tl.SetRawSettings(map[string]string{"A": "1"})
	v, ok := tl.Observable().Setting("A")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}
