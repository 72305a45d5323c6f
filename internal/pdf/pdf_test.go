package pdf

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// onePagePDF builds a minimal valid single-page document.
func onePagePDF(t *testing.T) []byte {
	t.Helper()
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 200] /Resources << >> >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestMerge(t *testing.T) {
	doc := onePagePDF(t)

	merged, err := Merge([][]byte{doc, doc, doc})
	require.NoError(t, err)

	n, err := PageCount(merged)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMerge_SingleDocumentPassesThrough(t *testing.T) {
	doc := onePagePDF(t)
	got, err := Merge([][]byte{doc})
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestMerge_Empty(t *testing.T) {
	_, err := Merge(nil)
	assert.ErrorIs(t, err, ErrNothingToMerge)
}

func TestMerge_Garbage(t *testing.T) {
	_, err := Merge([][]byte{onePagePDF(t), []byte("not a pdf")})
	assert.Error(t, err)
}

func TestDownloader_Fetch(t *testing.T) {
	doc := onePagePDF(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/ok.pdf", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write(doc)
	})
	mux.HandleFunc("/gone.pdf", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	mux.HandleFunc("/page.html", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>login</body></html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d := NewDownloader(srv.Client())
	ctx := context.Background()

	got, ok, err := d.Fetch(ctx, srv.URL+"/ok.pdf")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, doc, got)

	_, ok, err = d.Fetch(ctx, srv.URL+"/gone.pdf")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = d.Fetch(ctx, srv.URL+"/page.html")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDownloader_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/x.pdf"
	srv.Close()

	_, _, err := NewDownloader(nil).Fetch(context.Background(), url)
	assert.Error(t, err)
}

func TestDownloader_SkipsOversizedDocument(t *testing.T) {
	doc := onePagePDF(t)
	old := maxDocumentBytes
	maxDocumentBytes = len(doc)
	t.Cleanup(func() { maxDocumentBytes = old })

	mux := http.NewServeMux()
	mux.HandleFunc("/exact.pdf", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(doc)
	})
	mux.HandleFunc("/big.pdf", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(append(append([]byte{}, doc...), ' '))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d := NewDownloader(srv.Client())

	got, ok, err := d.Fetch(context.Background(), srv.URL+"/exact.pdf")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, doc, got)

	got, ok, err = d.Fetch(context.Background(), srv.URL+"/big.pdf")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}
