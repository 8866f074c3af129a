package classify

import "github.com/meetscribe/scribe-go/domain/failure"

var userMessages = map[failure.Kind]string{
	failure.KindAuthFailed:               "Authentication with the transcription service failed.",
	failure.KindInvalidCredential:        "The transcription service rejected your credentials.",
	failure.KindQuotaExceeded:            "Your transcription quota has been used up.",
	failure.KindRateLimited:              "The transcription service is receiving too many requests.",
	failure.KindRegionUnavailable:        "The selected service region is currently unavailable.",
	failure.KindUnsupportedFormat:        "The audio format is not supported.",
	failure.KindOversizedInput:           "The audio file is too large to transcribe.",
	failure.KindUndersizedInput:          "The audio file is too short to transcribe.",
	failure.KindUnsupportedLanguage:      "The requested language is not supported.",
	failure.KindServiceUnavailable:       "The transcription service is temporarily unavailable.",
	failure.KindTimeout:                  "The request to the transcription service timed out.",
	failure.KindInternalError:            "The transcription service reported an unexpected error.",
	failure.KindBadRequest:               "The transcription request was malformed.",
	failure.KindNotFound:                 "The requested transcription could not be found.",
	failure.KindConcurrencyLimitExceeded: "Too many transcriptions are running at once.",
}

var suggestions = map[failure.Kind][]string{
	failure.KindAuthFailed: {
		"verify your credentials",
		"re-authenticate and try again",
	},
	failure.KindInvalidCredential: {
		"verify your credentials",
		"check that the credential has not expired or been revoked",
	},
	failure.KindQuotaExceeded: {
		"wait for the quota period to reset",
		"reduce request volume",
	},
	failure.KindRateLimited: {
		"reduce request volume",
		"retry after the recommended delay",
	},
	failure.KindRegionUnavailable: {
		"switch to a different service region",
		"retry later",
	},
	failure.KindUnsupportedFormat: {
		"convert the audio to a supported format",
	},
	failure.KindOversizedInput: {
		"split the audio into smaller segments",
	},
	failure.KindUndersizedInput: {
		"provide a longer audio recording",
	},
	failure.KindUnsupportedLanguage: {
		"choose a supported transcription language",
	},
	failure.KindServiceUnavailable: {
		"retry after a short delay",
		"check the service status page",
	},
	failure.KindTimeout: {
		"retry the request",
		"check your network connection",
	},
	failure.KindInternalError: {
		"retry the request",
		"contact support if the problem persists",
	},
	failure.KindBadRequest: {
		"check the request parameters",
	},
	failure.KindNotFound: {
		"verify the transcription job id",
	},
	failure.KindConcurrencyLimitExceeded: {
		"wait for running transcriptions to finish",
		"reduce concurrent requests",
	},
}

func userMessage(kind failure.Kind) string {
	if msg, ok := userMessages[kind]; ok {
		return msg
	}
	return userMessages[failure.KindInternalError]
}

func recoverySuggestions(kind failure.Kind) []string {
	if s, ok := suggestions[kind]; ok {
		out := make([]string, len(s))
		copy(out, s)
		return out
	}
	return recoverySuggestions(failure.KindInternalError)
}
