package apihttp

import (
	"bufio"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"moviesvault/catalog/internal/domain"
)

const (
	posterByteLimit = 20 << 20
	sniffLen        = 512
)

var (
	imageSizePattern = regexp.MustCompile(`^(w[0-9]{2,4}|h[0-9]{2,4}|original)$`)
	imageFilePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+\.(jpg|jpeg|png|webp|svg)$`)
)

type posterError struct {
	status  int
	code    string
	message string
}

func (e *posterError) Error() string { return e.message }

// handlePosterProxy streams an image from the fixed image CDN so that clients
// never talk to it directly. Only size and file name come from the request.
func (s *Server) handlePosterProxy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	size, file := r.PathValue("size"), r.PathValue("file")
	if !imageSizePattern.MatchString(size) || !imageFilePattern.MatchString(file) {
		writeError(w, http.StatusBadRequest, "invalid_request", "image size or file name is not valid")
		return
	}

	resp, err := s.fetchPoster(r, domain.ImageURL("/"+file, size))
	if err != nil {
		var perr *posterError
		if !errors.As(err, &perr) {
			perr = &posterError{status: http.StatusBadGateway, code: "image_unavailable", message: "image could not be fetched"}
		}
		writeError(w, perr.status, perr.code, perr.message)
		return
	}
	defer resp.Body.Close()

	body := bufio.NewReaderSize(io.LimitReader(resp.Body, posterByteLimit), sniffLen)
	head, err := body.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		writeError(w, http.StatusBadGateway, "image_unavailable", "image could not be read")
		return
	}
	contentType := resp.Header.Get("Content-Type")
	if strings.TrimSpace(contentType) == "" {
		contentType = http.DetectContentType(head)
	}
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		writeError(w, http.StatusBadGateway, "image_unavailable", "upstream did not return an image")
		return
	}

	header := w.Header()
	header.Set("Content-Type", contentType)
	header.Set("Cache-Control", "public, max-age=86400")
	if resp.ContentLength > 0 {
		header.Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = body.WriteTo(w)
}

func (s *Server) fetchPoster(r *http.Request, imageURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/*")
	resp, err := s.images.Do(req)
	if err != nil {
		return nil, err
	}

	var perr *posterError
	switch {
	case resp.StatusCode == http.StatusNotFound:
		perr = &posterError{status: http.StatusNotFound, code: "not_found", message: "image not found"}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		perr = &posterError{status: http.StatusBadGateway, code: "image_unavailable", message: "image CDN returned " + resp.Status}
	case resp.ContentLength > posterByteLimit:
		perr = &posterError{status: http.StatusBadGateway, code: "image_unavailable", message: "image exceeds size limit"}
	}
	if perr != nil {
		resp.Body.Close()
		return nil, perr
	}
	return resp, nil
}
