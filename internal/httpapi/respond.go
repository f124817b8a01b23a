package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/igasar/doorlock/internal/doorlock/types"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, types.ErrorResponse{Status: "error", Code: code, Message: msg})
}

// decode reads a JSON or protobuf Struct body into dst.  An empty body is
// treated as "{}" so token-only clients can rely on headers.  On failure it
// writes the error and returns false.
//
// Authentication comes before body shape: a bad header token is a 401
// without reading the body, and an unreadable body is only a 400 for a
// caller whose header token is valid.  Everyone else gets the 401.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	headerToken := requestToken(r, "")
	authed := headerToken != "" && s.facade.Authorized(headerToken)
	if headerToken != "" && !authed {
		writeError(w, http.StatusUnauthorized, "invalid_token", "Invalid token")
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var err error
	code, msg := "bad_json", "invalid JSON body"
	if isProtobuf(r) {
		err = readStruct(r, dst)
		code, msg = "bad_protobuf", "invalid protobuf body"
	} else {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err = dec.Decode(dst); errors.Is(err, io.EOF) {
			err = nil
		}
	}
	if err == nil {
		return true
	}

	if !authed {
		writeError(w, http.StatusUnauthorized, "invalid_token", "Invalid token")
		return false
	}
	writeError(w, http.StatusBadRequest, code, msg)
	return false
}

// reply answers in protobuf when the client spoke or asked for it, JSON
// otherwise.
func (s *Server) reply(w http.ResponseWriter, r *http.Request, status int, v any) {
	if wantsProtobuf(r) {
		msg, err := toStruct(v)
		if err != nil {
			s.logger.Error("protobuf encode failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
			return
		}
		writeProto(w, status, msg)
		return
	}
	writeJSON(w, status, v)
}
