package dia

// workerScript is the embedded Python worker that runs inside the dia
// environment. It folds each section's segments into one speaker-tagged
// chunk, synthesizes per section, and writes the WAV plus a
// timestamps.json table beside it. Progress goes to stdout as JSON lines.
const workerScript = `#!/usr/bin/env python3
import argparse
import json
import os
import sys

import numpy as np


def emit(phase, **fields):
    print(json.dumps({"phase": phase, **fields}), flush=True)


def section_chunks(segments):
    """Fold contiguous segments into one [S1]/[S2]-tagged chunk per section."""
    chunks = []
    for segment in segments:
        section_id = segment["sectionId"]
        tagged = "[%s] %s" % (segment.get("speaker", "S1"), segment["text"])
        if chunks and chunks[-1]["sectionId"] == section_id:
            chunks[-1]["text"] += " " + tagged
        else:
            chunks.append({"sectionId": section_id, "text": tagged})
    return chunks


def generate(script_path, output_path):
    emit("loading")

    try:
        from dia.model import Dia
    except ImportError:
        print("ERROR: dia package not importable; reinstall the engine", file=sys.stderr)
        sys.exit(1)

    model = Dia("nari-labs/Dia-1.6B")

    with open(script_path) as f:
        script = json.load(f)

    chunks = section_chunks(script.get("segments", []))
    gap_ms = script.get("gapMs", 300)
    sample_rate = 44100
    gap = np.zeros(int(sample_rate * gap_ms / 1000), dtype=np.float32)

    parts = []
    timestamps = []
    cursor = 0.0

    for i, chunk in enumerate(chunks):
        section_id = chunk["sectionId"]
        emit("generating", sectionIndex=i, sectionId=section_id)

        try:
            audio = model.generate(chunk["text"])
        except Exception as exc:
            print("WARNING: section %s failed: %s" % (section_id, exc), file=sys.stderr)
            continue

        if audio is None or len(audio) == 0:
            print("WARNING: section %s produced no audio" % section_id, file=sys.stderr)
            continue
        if isinstance(audio, list):
            audio = np.array(audio, dtype=np.float32)

        duration = len(audio) / sample_rate
        timestamps.append({
            "sectionId": section_id,
            "startTime": cursor,
            "endTime": cursor + duration,
        })
        parts.append(audio)
        cursor += duration

        if i < len(chunks) - 1:
            parts.append(gap)
            cursor += gap_ms / 1000

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
    args = parser.parse_args()
    generate(args.script, args.output)
`
