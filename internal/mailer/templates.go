package mailer

import "fmt"

// Templated workflow notifications. The bodies mirror the plain paragraph
// style existing clients already render.

// SubmissionInfo carries the fields interpolated into submission emails.
type SubmissionInfo struct {
	NomorSurat string
	Penerima   string
	Tanggal    string
	Keperluan  string
}

func submissionDetails(info SubmissionInfo, status string) (html, text string) {
	html = fmt.Sprintf(
		"<p>Nomor Surat: %s</p>\n<p>Penerima: %s</p>\n<p>Tanggal: %s</p>\n<p>Keperluan: %s</p>\n<p>Status: %s</p>",
		info.NomorSurat, info.Penerima, info.Tanggal, info.Keperluan, status)
	text = fmt.Sprintf(
		"Nomor Surat: %s\nPenerima: %s\nTanggal: %s\nKeperluan: %s\nStatus: %s",
		info.NomorSurat, info.Penerima, info.Tanggal, info.Keperluan, status)
	return html, text
}

// EmailVerification carries the verification link for an account's address.
// The link is valid for 24 hours.
func EmailVerification(to, name, verifyURL string) Message {
	if name == "" {
		name = "Sekretaris"
	}
	return Message{
		To:      []string{to},
		Subject: "Verifikasi Email",
		HTML: fmt.Sprintf(
			"<p>Halo %s,</p>\n<p>Klik tautan berikut untuk verifikasi email akun Laci Digital kamu:</p>\n<p><a href=\"%s\">%s</a></p>\n<p>Tautan berlaku selama 24 jam.</p>\n<p>PC IPNU IPPNU Magetan</p>",
			name, verifyURL, verifyURL),
		Text: fmt.Sprintf(
			"Halo %s,\nVerifikasi email akun Laci Digital kamu: %s\nTautan berlaku selama 24 jam.\nPC IPNU IPPNU Magetan",
			name, verifyURL),
	}
}

// SubmissionReceived notifies the submitter that the submission is pending.
func SubmissionReceived(to string, info SubmissionInfo) Message {
	html, text := submissionDetails(info, "PENDING")
	return Message{
		To:      []string{to},
		Subject: "Pengajuan PAC berhasil dikirim",
		HTML:    "<p>Pengajuan PAC berhasil dikirim dan akan diproses oleh sekretaris cabang.</p>\n" + html,
		Text:    "Pengajuan PAC berhasil dikirim dan akan diproses oleh sekretaris cabang.\n" + text,
	}
}

// SubmissionPendingReview notifies branch secretaries of a new submission.
func SubmissionPendingReview(to []string, submitterName string, info SubmissionInfo) Message {
	if submitterName == "" {
		submitterName = "PAC"
	}
	html, text := submissionDetails(info, "PENDING")
	return Message{
		To:      to,
		Subject: "Pengajuan PAC baru menunggu proses",
		HTML:    fmt.Sprintf("<p>Ada pengajuan PAC baru dari %s.</p>\n%s", submitterName, html),
		Text:    fmt.Sprintf("Ada pengajuan PAC baru dari %s.\n%s", submitterName, text),
	}
}

// SubmissionAccepted notifies the submitter of approval.
func SubmissionAccepted(to string, info SubmissionInfo) Message {
	html, text := submissionDetails(info, "DITERIMA")
	return Message{
		To:      []string{to},
		Subject: "Pengajuan PAC diterima",
		HTML:    "<p>Pengajuan PAC kamu telah diterima oleh sekretaris cabang.</p>\n" + html,
		Text:    "Pengajuan PAC diterima.\n" + text,
	}
}

// SubmissionRejected notifies the submitter of rejection with the reason.
func SubmissionRejected(to string, info SubmissionInfo, reason string) Message {
	html, text := submissionDetails(info, "DITOLAK")
	return Message{
		To:      []string{to},
		Subject: "Pengajuan PAC ditolak",
		HTML: fmt.Sprintf("<p>Pengajuan PAC kamu ditolak oleh sekretaris cabang.</p>\n<p>Alasan: %s</p>\n%s",
			reason, html),
		Text: fmt.Sprintf("Pengajuan PAC ditolak.\nAlasan: %s\n%s", reason, text),
	}
}
