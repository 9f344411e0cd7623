package bark

// workerScript is the embedded Python worker that runs inside the bark
// environment. It synthesizes segment by segment with per-speaker voice
// presets, maps delivery directions onto Bark tokens (pause becomes
// inserted silence), tracks section boundaries for the timestamp table,
// and reports a remaining-time estimate once it has timing history.
// Sections that yield no audio are left out of the table so the engine
// reports them as skipped.
const workerScript = `#!/usr/bin/env python3
import argparse
import json
import os
import sys
import time

import numpy as np

PRESETS = {
    "en": {"S1": "v2/en_speaker_6", "S2": "v2/en_speaker_9"},
    "es": {"S1": "v2/es_speaker_8", "S2": "v2/es_speaker_9"},
}

DIRECTION_TOKENS = {
    "laughs": "[laughter]",
    "laughter": "[laughter]",
    "sighs": "[sighs]",
    "sigh": "[sighs]",
    "gasps": "[gasps]",
    "gasp": "[gasps]",
}

PAUSE_DIRECTIONS = ("pause", "pauses")
PAUSE_SECONDS = 0.5


def emit(phase, **fields):
    print(json.dumps({"phase": phase, **fields}), flush=True)


def annotate(text, direction):
    token = DIRECTION_TOKENS.get((direction or "").lower(), "")
    if token:
        return "%s %s" % (token, text)
    return text


def generate(script_path, output_path, lang):
    emit("loading")

    try:
        from bark import SAMPLE_RATE, generate_audio, preload_models
    except ImportError:
        print("ERROR: bark package not importable; reinstall the engine", file=sys.stderr)
        sys.exit(1)

    preload_models()
    sample_rate = SAMPLE_RATE

    with open(script_path) as f:
        script = json.load(f)

    segments = script.get("segments", [])
    gap_ms = script.get("gapMs", 400)
    presets = PRESETS.get(lang, PRESETS["en"])
    gap = np.zeros(int(sample_rate * gap_ms / 1000), dtype=np.float32)

    parts = []
    timestamps = []
    cursor = 0.0
    open_section = None
    section_start = 0.0
    durations = []

    for i, segment in enumerate(segments):
        section_id = segment.get("sectionId", "")
        direction = segment.get("direction")
        text = segment.get("text", "")
        preset = presets.get(segment.get("speaker", "S1"), presets["S1"])

        if section_id != open_section:
            if open_section is not None:
                if cursor > section_start:
                    timestamps.append({
                        "sectionId": open_section,
                        "startTime": section_start,
                        "endTime": cursor,
                    })
                    parts.append(gap)
                    cursor += gap_ms / 1000
                else:
                    print("WARNING: section %s produced no audio; skipping" % open_section, file=sys.stderr)
            open_section = section_id
            section_start = cursor

        eta = None
        if durations:
            eta = sum(durations) / len(durations) * (len(segments) - i)
        emit("generating", segmentIndex=i, sectionId=section_id, estRemainingSeconds=eta)

        processed = annotate(text, direction)
        if not processed.strip() and (direction or "").lower() not in PAUSE_DIRECTIONS:
            continue

        try:
            started = time.time()
            if (direction or "").lower() in PAUSE_DIRECTIONS:
                audio = np.zeros(int(sample_rate * PAUSE_SECONDS), dtype=np.float32)
                if text.strip():
                    spoken = generate_audio(processed, history_prompt=preset)
                    if spoken is not None:
                        audio = np.concatenate([audio, spoken])
            else:
                audio = generate_audio(processed, history_prompt=preset)
            durations.append(time.time() - started)
        except Exception as exc:
            print("WARNING: segment %d (%s) failed: %s" % (i, section_id, exc), file=sys.stderr)
            continue

        if audio is None or len(audio) == 0:
            print("WARNING: segment %d (%s) produced no audio" % (i, section_id), file=sys.stderr)
            continue
        if isinstance(audio, list):
            audio = np.array(audio, dtype=np.float32)

        parts.append(audio)
        cursor += len(audio) / sample_rate

    if open_section is not None:
        if cursor > section_start:
            timestamps.append({
                "sectionId": open_section,
                "startTime": section_start,
                "endTime": cursor,
            })
        else:
            print("WARNING: section %s produced no audio; skipping" % open_section, file=sys.stderr)

    if not parts:
        print("ERROR: no audio generated", file=sys.stderr)
        sys.exit(1)

    emit("saving")

    combined = np.concatenate(parts)
    peak = np.max(np.abs(combined))
    if peak > 0:
        combined = combined / peak * 0.95

    import soundfile as sf
    sf.write(output_path, combined, sample_rate)

    with open(os.path.join(os.path.dirname(output_path), "timestamps.json"), "w") as f:
        json.dump(timestamps, f, indent=2)

    emit("done")


if __name__ == "__main__":
    parser = argparse.ArgumentParser()
    parser.add_argument("--script", required=True)
    parser.add_argument("--output", required=True)
    parser.add_argument("--lang", default="en")
    args = parser.parse_args()
    generate(args.script, args.output, args.lang)
`
