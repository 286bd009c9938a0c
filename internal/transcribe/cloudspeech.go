package transcribe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/dvloznov/voice-inventory/internal/audioconv"
	"github.com/dvloznov/voice-inventory/internal/logger"
	"github.com/googleapis/gax-go/v2"
)

// recognizer is the subset of *speech.Client used here.
type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
}

// CloudSpeech transcribes with Google Cloud Speech-to-Text. Every upload is
// normalised to 16 kHz mono LINEAR16 first.
type CloudSpeech struct {
	client   recognizer
	closer   func() error
	language string
}

// NewCloudSpeech creates a client using application default credentials.
func NewCloudSpeech(ctx context.Context, language string) (*CloudSpeech, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewCloudSpeech: creating client: %w", err)
	}
	c := newCloudSpeech(client, language)
	c.closer = client.Close
	return c, nil
}

func newCloudSpeech(client recognizer, language string) *CloudSpeech {
	if language == "" {
		language = "en-US"
	}
	return &CloudSpeech{client: client, language: language}
}

// Close releases the underlying gRPC connection.
func (c *CloudSpeech) Close() error {
	if c.closer != nil {
		return c.closer()
	}
	return nil
}

func (c *CloudSpeech) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	log := logger.FromContext(ctx)

	wav, err := audioconv.ToWAV16k(audio, filename, audioconv.Options{})
	if err != nil {
		if errors.Is(err, audioconv.ErrEmptyAudio) || errors.Is(err, audioconv.ErrUnsupportedFormat) {
			return "", fmt.Errorf("%w: %v", ErrUnintelligible, err)
		}
		return "", fmt.Errorf("%w: decoding audio: %v", ErrUnintelligible, err)
	}

	resp, err := c.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            audioconv.TargetSampleRate,
			AudioChannelCount:          1,
			LanguageCode:               c.language,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: wav},
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("Cloud Speech recognition failed")
		return "", fmt.Errorf("%w: %v", ErrService, err)
	}

	var parts []string
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if t := strings.TrimSpace(alts[0].GetTranscript()); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return "", ErrUnintelligible
	}
	return strings.Join(parts, " "), nil
}
