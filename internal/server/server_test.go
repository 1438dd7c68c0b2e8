package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pdfvault/internal/blob"
	"github.com/Lllllllleong/pdfvault/internal/extract"
	"github.com/Lllllllleong/pdfvault/internal/metadata"
	"github.com/Lllllllleong/pdfvault/internal/models"
	"github.com/Lllllllleong/pdfvault/internal/pdftest"
	"github.com/Lllllllleong/pdfvault/internal/services"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	blobs, err := blob.NewFSStore(dir + "/blobs")
	require.NoError(t, err)
	meta, err := metadata.NewFileStore(dir + "/metadata.json")
	require.NoError(t, err)

	timeout := 10 * time.Second
	extractor := extract.New()
	srv := New(":0",
		services.NewIngestor(meta, blobs, extractor, 200, timeout),
		services.NewDeriver(meta, blobs, extractor, 200, timeout),
		services.NewCatalog(meta, blobs, extractor, timeout),
		[]string{"*"},
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func uploadPDF(t *testing.T, ts *httptest.Server, name string, data []byte) (*http.Response, models.DocumentRecord) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/documents", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var record models.DocumentRecord
	if resp.StatusCode == http.StatusCreated {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&record))
	}
	return resp, record
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func doDelete(t *testing.T, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestUploadAndFetch(t *testing.T) {
	ts := newTestServer(t)

	resp, record := uploadPDF(t, ts, "doc.pdf", pdftest.PDF("hello", "world"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 2, record.PageCount)

	infoResp, err := http.Get(ts.URL + "/documents/" + record.ID)
	require.NoError(t, err)
	defer infoResp.Body.Close()
	assert.Equal(t, http.StatusOK, infoResp.StatusCode)
}

func TestUploadRejectsBadExtension(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := uploadPDF(t, ts, "doc.txt", pdftest.PDF("x"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadCorruptPDF(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := uploadPDF(t, ts, "doc.pdf", pdftest.Corrupt())
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestUploadRawBodyWithHeader(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/documents", bytes.NewReader(pdftest.PDF("raw")))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/pdf")
	req.Header.Set("X-Filename", "raw.pdf")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestGetMissingDocument(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/documents/ghost")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body.Error)
}

func TestDownloadContent(t *testing.T) {
	ts := newTestServer(t)
	data := pdftest.PDF("downloadable")
	_, record := uploadPDF(t, ts, "mine.pdf", data)

	resp, err := http.Get(ts.URL + "/documents/" + record.ID + "/content")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "mine.pdf")
}

func TestGetTextWithPageFilter(t *testing.T) {
	ts := newTestServer(t)
	_, record := uploadPDF(t, ts, "doc.pdf", pdftest.PDF("alpha", "beta", "gamma"))

	resp, err := http.Get(ts.URL + "/documents/" + record.ID + "/text?pages=2")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body models.TextResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Text, "beta")
	assert.NotContains(t, body.Text, "alpha")
}

func TestGetTextOutOfRangePage(t *testing.T) {
	ts := newTestServer(t)
	_, record := uploadPDF(t, ts, "doc.pdf", pdftest.PDF("a", "b", "c"))

	resp, err := http.Get(ts.URL + "/documents/" + record.ID + "/text?pages=9")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body models.TextResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, extract.NoTextSentinel, body.Text)
}

func TestGetTextBadPagesParam(t *testing.T) {
	ts := newTestServer(t)
	_, record := uploadPDF(t, ts, "doc.pdf", pdftest.PDF("a"))

	resp, err := http.Get(ts.URL + "/documents/" + record.ID + "/text?pages=abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMergeEndpoint(t *testing.T) {
	ts := newTestServer(t)
	_, doc1 := uploadPDF(t, ts, "doc1.pdf", pdftest.PDF("a", "b", "c"))
	_, doc2 := uploadPDF(t, ts, "doc2.pdf", pdftest.PDF("d", "e"))

	resp := postJSON(t, ts.URL+"/documents/merge", models.MergeRequest{
		DocumentIDs: []string{doc1.ID, doc2.ID},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var merged models.DocumentRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&merged))
	assert.Equal(t, 5, merged.PageCount)
	require.NotNil(t, merged.Lineage)
	assert.Equal(t, []string{doc1.ID, doc2.ID}, merged.Lineage.MergedFrom)
}

func TestMergeTooFewIDs(t *testing.T) {
	ts := newTestServer(t)
	_, doc := uploadPDF(t, ts, "doc.pdf", pdftest.PDF("a"))

	resp := postJSON(t, ts.URL+"/documents/merge", models.MergeRequest{DocumentIDs: []string{doc.ID}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMergeMissingID(t *testing.T) {
	ts := newTestServer(t)
	_, doc := uploadPDF(t, ts, "doc.pdf", pdftest.PDF("a"))

	resp := postJSON(t, ts.URL+"/documents/merge", models.MergeRequest{DocumentIDs: []string{doc.ID, "ghost"}})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Error, "ghost")
}

func TestSplitEndpoint(t *testing.T) {
	ts := newTestServer(t)
	_, doc := uploadPDF(t, ts, "doc.pdf", pdftest.PDF("p1", "p2", "p3"))

	resp := postJSON(t, fmt.Sprintf("%s/documents/%s/split", ts.URL, doc.ID), models.SplitRequest{Start: 1, End: 3})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var fragment models.DocumentRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fragment))
	assert.Equal(t, 2, fragment.PageCount)
}

func TestRotateEndpointRejectsBadDegrees(t *testing.T) {
	ts := newTestServer(t)
	_, doc := uploadPDF(t, ts, "doc.pdf", pdftest.PDF("p1"))

	resp := postJSON(t, fmt.Sprintf("%s/documents/%s/rotate", ts.URL, doc.ID), models.RotateRequest{Degrees: 45})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnnotateEndpoint(t *testing.T) {
	ts := newTestServer(t)
	_, doc := uploadPDF(t, ts, "doc.pdf", pdftest.PDF("p1"))

	resp := postJSON(t, fmt.Sprintf("%s/documents/%s/annotate", ts.URL, doc.ID), models.AnnotateRequest{
		Page: 1, Text: "APPROVED", X: 50, Y: 50,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestDeleteTwice(t *testing.T) {
	ts := newTestServer(t)
	_, doc := uploadPDF(t, ts, "doc.pdf", pdftest.PDF("x"))

	first := doDelete(t, ts.URL+"/documents/"+doc.ID)
	assert.Equal(t, http.StatusOK, first.StatusCode)

	second := doDelete(t, ts.URL+"/documents/"+doc.ID)
	assert.Equal(t, http.StatusNotFound, second.StatusCode)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCORSHeaders(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/documents", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}
