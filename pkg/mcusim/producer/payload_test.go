package producer_test

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/mcusim/pkg/mcusim/producer"
)

func itoa(i int) string { return strconv.Itoa(i) }

func TestUARTBytes_WrapsAfter255(t *testing.T) {
	p := producer.UARTBytes()

	var labels []string
	for i := 0; i < 258; i++ {
		labels = append(labels, p.Next(nil))
	}

	assert.Equal(t, "UART_BYTE:1", labels[0])
	assert.Equal(t, "UART_BYTE:255", labels[254])
	assert.Equal(t, "UART_BYTE:0", labels[255])
	assert.Equal(t, "UART_BYTE:1", labels[256])
}

func TestUARTBytes_IndependentCounters(t *testing.T) {
	a, b := producer.UARTBytes(), producer.UARTBytes()
	a.Next(nil)
	a.Next(nil)
	assert.Equal(t, "UART_BYTE:1", b.Next(nil))
}

func TestGPIOState(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	p := producer.GPIOState()

	seen := map[string]int{}
	for i := 0; i < 200; i++ {
		label := p.Next(rng)
		require.True(t, strings.HasPrefix(label, "GPIO_STATE:"), label)
		seen[label]++
	}
	assert.Len(t, seen, 2)
	assert.Positive(t, seen["GPIO_STATE:true"])
	assert.Positive(t, seen["GPIO_STATE:false"])
}

func TestFixedLabel(t *testing.T) {
	p := producer.FixedLabel("ADC_DONE")
	assert.Equal(t, "ADC_DONE", p.Next(nil))
	assert.Equal(t, "ADC_DONE", p.Next(nil))
}

func TestPayloadRegistry(t *testing.T) {
	r := producer.NewPayloadRegistry()
	assert.Equal(t, []string{"gpio", "label", "uart"}, r.Kinds())
	assert.True(t, r.Has(producer.PayloadUART))
	assert.False(t, r.Has("spi"))

	t.Run("builds fresh generators", func(t *testing.T) {
		a, err := r.Build(producer.PayloadUART, "")
		require.NoError(t, err)
		b, err := r.Build(producer.PayloadUART, "")
		require.NoError(t, err)

		a.Next(nil)
		assert.Equal(t, "UART_BYTE:1", b.Next(nil))
	})

	t.Run("label kind requires label", func(t *testing.T) {
		_, err := r.Build(producer.PayloadLabel, "")
		assert.Error(t, err)

		p, err := r.Build(producer.PayloadLabel, "SPI_DONE")
		require.NoError(t, err)
		assert.Equal(t, "SPI_DONE", p.Next(nil))
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := r.Build("spi", "")
		assert.ErrorContains(t, err, `unknown payload kind "spi"`)
	})

	t.Run("custom kind", func(t *testing.T) {
		r.Register("spi", func(string) (producer.Payload, error) {
			return producer.FixedLabel("SPI"), nil
		})
		p, err := r.Build("spi", "")
		require.NoError(t, err)
		assert.Equal(t, "SPI", p.Next(nil))
	})
}

func TestDefaultPayloads(t *testing.T) {
	assert.Same(t, producer.DefaultPayloads(), producer.DefaultPayloads())
	assert.True(t, producer.DefaultPayloads().Has(producer.PayloadGPIO))
}
