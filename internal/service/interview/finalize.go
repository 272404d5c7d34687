package interview

import (
	"context"
	"log"

	interviewmodel "github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/storage"
)

const audioFilename = "audio.ogg"

// finalize runs once after the event loop has stopped.
func (s *Session) finalize() {
	defer close(s.done)
	defer s.cancelRun()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.GenerateTimeout)
	defer cancel()

	endedAt := s.opts.Now()
	duration := endedAt.Sub(s.startedAt)

	s.mu.RLock()
	transcript := append([]interviewmodel.TranscriptEntry(nil), s.transcript...)
	reason := s.closeReason
	s.mu.RUnlock()

	artifact := &interviewmodel.SessionArtifact{
		SessionID:        s.id,
		CandidateName:    s.candidateName,
		Timestamp:        endedAt,
		ModelProvider:    s.provider,
		MultiAgent:       s.multiAgent,
		Phases:           append([]string(nil), s.phaseNames...),
		CloseReason:      reason,
		Duration:         interviewmodel.NewDuration(duration),
		Latency:          interviewmodel.SummarizeLatency(s.latencies),
		TokenUsage:       s.usage,
		Transcript:       transcript,
		FinalPhaseIndex:  s.active,
		PhaseTransitions: s.transitions,
	}
	if !s.multiAgent {
		artifact.Phases = []string{}
	}

	if s.saveAudio(ctx) {
		artifact.AudioFile = audioFilename
	}
	artifact.ExtractedProfile = s.extractProfile(ctx, transcript)

	if err := storage.SaveSession(ctx, s.deps.Store, artifact); err != nil {
		log.Printf("[interview] session=%s failed to persist artifact: %v", s.id, err)
	}

	s.mu.Lock()
	s.state = StateClosed
	s.artifact = artifact
	s.mu.Unlock()

	log.Printf("[interview] session closed | id=%s | duration=%.1fs | transcript_turns=%d | reason=%s",
		s.id, duration.Seconds(), len(transcript), reason)
	s.notify(Event{Type: EventClosed, Reason: reason})

	if s.deps.Terminator == nil {
		return
	}
	if duration < s.opts.MinSessionDuration {
		log.Printf("[interview] session=%s short session (%.1fs), skipping terminate", s.id, duration.Seconds())
		return
	}
	s.deps.Terminator.Terminate(s.id)
}

func (s *Session) saveAudio(ctx context.Context) bool {
	if s.deps.Audio == nil {
		return false
	}
	data, err := s.deps.Audio.Audio(ctx, s.id)
	if err != nil {
		log.Printf("[interview] session=%s audio unavailable: %v", s.id, err)
		return false
	}
	if len(data) == 0 {
		return false
	}
	if err := s.deps.Store.SaveArtifact(ctx, s.id, storage.KindAudio, data); err != nil {
		log.Printf("[interview] session=%s failed to save audio: %v", s.id, err)
		return false
	}
	return true
}

func (s *Session) extractProfile(ctx context.Context, transcript []interviewmodel.TranscriptEntry) interviewmodel.Profile {
	if s.deps.Extractor == nil {
		return interviewmodel.Profile{}
	}
	profile := s.deps.Extractor.Extract(ctx, transcript)
	if profile == nil {
		return interviewmodel.Profile{}
	}
	return profile
}
