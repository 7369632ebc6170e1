package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Session level messages (info)
		"Playing %s: %s via %s, %dx%d, %.3f fps, %s":        "%s を再生中: %s (%s), %dx%d, %.3f fps, %s",
		"End of stream reached":                             "ストリームの終端に到達しました",
		"Interrupted, shutting down...":                     "中断されました。シャットダウン中...",
		"Session time limit reached":                        "セッションの制限時間に達しました",
		"Looping to start, pass %d":                         "先頭に戻ります (%d 周目)",
		"Report saved to %s":                                "レポートを %s に保存しました",
		"Snapshot saved to %s":                              "スナップショットを %s に保存しました",
		"Wrote %d %s frames (%dx%d, %.3f fps) to %s":        "%d フレームの %s (%dx%d, %.3f fps) を %s に書き込みました",
		"Encoding %s via %s":                                "%s を %s でエンコードします",
		"%s encoder not available (%s), falling back to %s": "%s エンコーダーが利用できません (%s)。%s で代替します",

		// Playback (decode component)
		"Opened video %d: %dx%d, %.3f fps, %s": "動画 %d を開きました: %dx%d, %.3f fps, %s",
		"Seeked video %d to %s":                "動画 %d を %s にシークしました",
		"Closed video %d":                      "動画 %d を閉じました",
		"Decode loop %s -> %s":                 "デコードループ %s -> %s",

		// Source components
		"Indexed %d samples of %s track, %dx%d": "%d サンプルの %s トラックを索引化しました, %dx%d",
		"Seek to pts %d starts at sample %d":    "PTS %d へのシークはサンプル %d から開始します",
		"Selected %s backend for %s track":      "%s バックエンドを %s トラックに選択しました",

		// Status line
		"%s %s / %s": "%s %s / %s",
		"Playing":    "再生中",
		"Paused":     "一時停止",
		"Ended":      "終了",
		"Error":      "エラー",

		// Warnings
		"Command %s failed: %v":            "コマンド %s に失敗しました: %v",
		"Ignoring input: %v":               "入力を無視します: %v",
		"Failed to write report: %s":       "レポートの書き込みに失敗しました: %s",
		"Failed to save snapshot: %s":      "スナップショットの保存に失敗しました: %s",
		"Failed to write debug output: %s": "デバッグ出力の書き込みに失敗しました: %s",

		// Errors
		"Decode loop panicked: %v":   "デコードループがパニックしました: %v",
		"Decoding stopped: %v":       "デコードが停止しました: %v",
		"Failed to encode video: %s": "動画のエンコードに失敗しました: %s",
		"Failed to write output: %s": "出力の書き込みに失敗しました: %s",
	})
}
