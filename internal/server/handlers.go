package server

import (
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"osakana/internal/gamedata"

	"github.com/rs/zerolog/log"
)

func handleCreateUser(game *gamedata.Game) http.HandlerFunc {
	type response struct {
		UserID string `json:"user_id"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		p := game.CreateParticipant()
		writeJSON(w, http.StatusOK, response{UserID: p.ID})
	}
}

func handleAnswer(game *gamedata.Game) http.HandlerFunc {
	type request struct {
		UserID        string `json:"user_id"`
		QuestionIndex int    `json:"question_index"`
		KanjiUnicode  string `json:"kanji_unicode"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		res, err := game.SubmitAnswer(req.UserID, req.QuestionIndex, req.KanjiUnicode)
		if errors.Is(err, gamedata.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("submitting answer")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, res)
	}
}

func handleCurrentQuestions(game *gamedata.Game) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"current_questions": game.CurrentQuestions(),
		})
	}
}

func handleRemainingTime(game *gamedata.Game) http.HandlerFunc {
	type request struct {
		Seconds float64 `json:"seconds"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Seconds <= 0 || req.Seconds > math.MaxInt64/float64(time.Second) {
			writeError(w, http.StatusBadRequest, "seconds must be positive")
			return
		}

		game.SetRoundDuration(time.Duration(req.Seconds * float64(time.Second)))
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleGetRanking(game *gamedata.Game) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"ranking": game.CurrentRanking(),
		})
	}
}

func handleRegisterRanking(game *gamedata.Game) http.HandlerFunc {
	type request struct {
		UserID   string `json:"user_id"`
		Username string `json:"username"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		name := strings.TrimSpace(req.Username)
		if name == "" {
			writeError(w, http.StatusBadRequest, "username is required")
			return
		}

		entry, err := game.RegisterForRanking(req.UserID, name)
		if errors.Is(err, gamedata.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("registering ranking entry")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, entry)
	}
}
