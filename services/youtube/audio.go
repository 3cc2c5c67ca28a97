package youtube

import "sort"

// SelectBestAudio picks the audio stream URL to hand to the player.
// A direct URL from a resolved single format wins outright. Otherwise the
// audio-bearing formats are ranked by (abr, tbr) descending and the top one
// must carry a URL; lower-ranked candidates are never used as a fallback.
func SelectBestAudio(formats []RawFormat, directURL string) (string, error) {
	if directURL != "" {
		return directURL, nil
	}

	candidates := make([]RawFormat, 0, len(formats))
	for _, f := range formats {
		if f.ACodec != "" && f.ACodec != "none" {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return "", ErrNoAudioAvailable
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].ABR != candidates[j].ABR {
			return candidates[i].ABR > candidates[j].ABR
		}
		return candidates[i].TBR > candidates[j].TBR
	})

	best := candidates[0]
	if best.URL == "" {
		return "", ErrNoAudioAvailable
	}
	return best.URL, nil
}
