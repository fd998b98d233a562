package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestBrowserSession launches a headless browser found on this machine.
// If no Chromium is installed, the test will be skipped
func newTestBrowserSession(t *testing.T) *BrowserSession {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping browser test in short mode")
	}
	bin, found := launcher.LookPath()
	if !found {
		t.Skip("Chromium is not available, skipping test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)

	session, err := NewBrowserSession(ctx, BrowserOptions{
		Headless:      true,
		Bin:           bin,
		Timeout:       15 * time.Second,
		DisabledClass: catalogSelectors.DisabledClass,
	})
	if err != nil {
		t.Skipf("Chromium could not be launched, skipping test: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func TestBrowserSessionReadsItems(t *testing.T) {
	server := newCatalogServer(t)
	session := newTestBrowserSession(t)
	ctx := context.Background()

	require.NoError(t, session.Open(ctx, server.URL+"/men-tshirts"))
	require.NoError(t, session.WaitForSelector(ctx, ".product-base"))

	items, err := session.FindAll(ctx, ".product-base")
	require.NoError(t, err)
	require.Len(t, items, 4)

	visible, err := items[0].HasVisibleChild(".product-strike")
	require.NoError(t, err)
	assert.True(t, visible)

	visible, err = items[1].HasVisibleChild(".product-strike")
	require.NoError(t, err)
	assert.False(t, visible, "regular item has no strike price")

	visible, err = items[2].HasVisibleChild(".product-strike")
	require.NoError(t, err)
	assert.False(t, visible, "strike price inside a display:none block")

	text, err := items[0].Text(".product-discountedPrice")
	require.NoError(t, err)
	assert.Equal(t, "Rs. 799", text)

	_, err = items[0].Text(".product-missing")
	assert.Error(t, err)

	href, found, err := items[0].Attribute("a", "href")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "puma/tshirts/1/buy", href)
}

func TestBrowserControlIsDisabled(t *testing.T) {
	server := newCatalogServer(t)
	session := newTestBrowserSession(t)
	ctx := context.Background()

	require.NoError(t, session.Open(ctx, server.URL+"/men-tshirts"))
	control, found, err := session.FindControl(ctx, ".pagination-next")
	require.NoError(t, err)
	require.True(t, found)
	disabled, err := control.IsDisabled()
	require.NoError(t, err)
	assert.False(t, disabled)

	_, found, err = session.FindControl(ctx, ".pagination-previous")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, session.Open(ctx, server.URL+"/men-tshirts?p=2"))
	control, found, err = session.FindControl(ctx, ".pagination-next")
	require.NoError(t, err)
	require.True(t, found)
	disabled, err = control.IsDisabled()
	require.NoError(t, err)
	assert.True(t, disabled)
}

func TestBrowserSessionPaginatorRun(t *testing.T) {
	server := newCatalogServer(t)
	session := newTestBrowserSession(t)
	ctx := context.Background()
	extractor := NewExtractor(catalogSelectors, "https://www.myntra.com/", 3)

	require.NoError(t, session.Open(ctx, server.URL+"/men-tshirts"))
	result, err := NewPaginator(extractor, catalogSelectors, 1).Run(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, StopPageLimit, result.Reason)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, []int{20, 50}, discountValues(result.Records))
	assert.Equal(t, "https://www.myntra.com/puma/tshirts/1/buy", result.Records[0].Link)

	require.NoError(t, session.Open(ctx, server.URL+"/men-tshirts?p=2"))
	result, err = NewPaginator(extractor, catalogSelectors, 0).Run(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, StopNextDisabled, result.Reason)
	assert.Equal(t, []int{35}, discountValues(result.Records))
}

func TestBrowserSessionNavigateRejectsForeignControl(t *testing.T) {
	session := &BrowserSession{}
	err := session.NavigateNext(context.Background(), &staticControl{})
	assert.Error(t, err)
}

func TestBrowserSessionCloseWithoutBrowser(t *testing.T) {
	session := &BrowserSession{}
	assert.NoError(t, session.Close())
}
