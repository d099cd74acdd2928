package handlers

import (
	"errors"
	"net/http"

	"github.com/pribylovaa/session-service/internal/assets"
)

// multipartMemory — часть формы, которая держится в памяти; остальное уходит во временные файлы.
const multipartMemory = 8 << 20

// parseMultipart разбирает multipart-тело, ограничивая его размер.
// Вызывающий обязан вызвать возвращённую функцию очистки.
func (h *Handlers) parseMultipart(w http.ResponseWriter, r *http.Request) (func(), error) {
	if h.opts.MaxUploadBytes > 0 {
		// Запас на текстовые поля и разметку multipart поверх лимита файлов.
		r.Body = http.MaxBytesReader(w, r.Body, 2*h.opts.MaxUploadBytes+1<<20)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return func() {}, err
	}

	return func() { _ = r.MultipartForm.RemoveAll() }, nil
}

// formFile возвращает файл поля field или nil, если поле не передано.
// Возвращённую функцию закрытия нужно вызвать после загрузки.
func formFile(r *http.Request, field string) (*assets.File, func(), error) {
	f, hdr, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, func() {}, nil
		}
		return nil, func() {}, err
	}

	return &assets.File{
		Filename:    hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Size:        hdr.Size,
		Body:        f,
	}, func() { _ = f.Close() }, nil
}
