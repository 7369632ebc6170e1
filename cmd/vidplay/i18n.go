// Package main provides localization for the vidplay CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Root command
		"Decode and present MP4 video with a background decode loop.": "バックグラウンドのデコードループでMP4動画をデコードし表示します。",

		// Commands
		"Play a video onto an offscreen surface.": "動画をオフスクリーンのサーフェスに再生",
		"Show stream information.":                "ストリーム情報を表示",
		"Write a synthetic test video.":           "合成テスト動画を書き出し",
		"Show version information.":               "バージョン情報を表示",

		// Global flags
		"YAML configuration file.":                       "YAML設定ファイル。",
		"Log level (debug, info, warn, error).":          "ログレベル（debug, info, warn, error）。",
		"Suppress all log output.":                       "全てのログ出力を抑制。",
		"Path to the ffmpeg executable used for H.264.":  "H.264 の処理に使う ffmpeg 実行ファイルのパス。",
		"Enable debug output.":                           "デバッグ出力を有効化。",
		"Directory for debug output (default: ./debug).": "デバッグ出力のディレクトリ（デフォルト: ./debug）。",

		// Play flags
		"Video file path or URL.":                        "動画ファイルのパスまたはURL。",
		"Decoded frame width (default: stream width).":   "デコード後のフレーム幅（デフォルト: ストリームの幅）。",
		"Decoded frame height (default: stream height).": "デコード後のフレーム高さ（デフォルト: ストリームの高さ）。",
		"Scaling quality (fast, balanced, best).":        "拡縮の品質（fast, balanced, best）。",
		"Start paused.":                                       "一時停止状態で開始。",
		"Restart at end of stream.":                           "終端で先頭から再開。",
		"Seek to this position before playing.":               "再生前にこの位置へシーク。",
		"Stop after this much wall time (0 = until the end).": "この実時間の経過後に停止（0 = 終端まで）。",
		"Keep the session open at end of stream.":             "終端に達してもセッションを継続。",
		"Do not read commands from standard input.":           "標準入力からコマンドを読まない。",
		"Save the last composed frame as PNG.":                "最後に合成したフレームをPNGで保存。",
		"Write a session report (Markdown) to this path.":     "セッションレポート（Markdown）をこのパスに書き出し。",

		// Probe flags
		"Print JSON instead of text.": "テキストの代わりにJSONを出力。",

		// Synth flags
		"Output MP4 file path.":               "出力MP4ファイルパス。",
		"Frame width.":                        "フレーム幅。",
		"Frame height.":                       "フレーム高さ。",
		"Frame rate.":                         "フレームレート。",
		"Number of frames.":                   "フレーム数。",
		"Video codec (jpeg, png, h264, av1).": "動画コーデック（jpeg, png, h264, av1）。",
		"Write JPEG samples when the codec's encoder is unavailable.":                                "エンコーダーが利用できない場合はJPEGサンプルで書き出す。",
		"Encoding quality (1-100).":                                                                  "エンコード品質（1-100）。",
		"Keyframe interval in frames (0 = every frame for image codecs, encoder default otherwise).": "キーフレーム間隔（0 = 画像コーデックは全フレーム、それ以外はエンコーダーの既定値）。",

		// Probe output
		"Location:   %s":                            "場所:             %s",
		"Codec:      %s (decoder: %s)":              "コーデック:       %s (デコーダー: %s)",
		"Size:       %dx%d":                         "サイズ:           %dx%d",
		"Frame rate: %.3f fps":                      "フレームレート:   %.3f fps",
		"Duration:   %s (%d samples, timescale %d)": "再生時間:         %s (%d サンプル, タイムスケール %d)",
		"unavailable":                               "利用不可",

		// Version output
		"vidplay version %s":                     "vidplay バージョン %s",
		"H.264 via ffmpeg: decode %v, encode %v": "H.264 (ffmpeg): デコード %v, エンコード %v",
		"AV1 via libaom: decode %v, encode %v":   "AV1 (libaom): デコード %v, エンコード %v",

		// Report content
		"Playback Report":  "再生レポート",
		"Source":           "ソース",
		"Stream":           "ストリーム",
		"Session":          "セッション",
		"Counters":         "カウンター",
		"Item":             "項目",
		"Value":            "値",
		"Location":         "場所",
		"Codec":            "コーデック",
		"Backend":          "バックエンド",
		"Size":             "サイズ",
		"Frame Rate":       "フレームレート",
		"Duration":         "再生時間",
		"Elapsed":          "経過時間",
		"Final Position":   "最終位置",
		"Outcome":          "結果",
		"Stopped by user":  "ユーザーが停止",
		"End of stream":    "ストリーム終端",
		"Frames Decoded":   "デコード数",
		"Frames Published": "公開フレーム数",
		"Frames Dropped":   "破棄フレーム数",
		"Seeks":            "シーク数",
		"Draws":            "描画数",
		"Texture Uploads":  "テクスチャ転送数",
		"Snapshots":        "スナップショット数",
		"Generated at":     "生成日時",
	})
}
