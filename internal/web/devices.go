package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"attendance-portal/internal/api"
	"attendance-portal/internal/forms"
)

func (h *Handler) deviceRoutes(g *gin.RouterGroup) {
	g.GET("", h.Devices)
	g.GET("/new", h.NewDevice)
	g.POST("", h.CreateDevice)
	g.GET("/:id/edit", h.EditDevice)
	g.POST("/:id", h.UpdateDevice)
	g.POST("/:id/delete", h.DeleteDevice)
	g.POST("/:id/scan", h.SimulateScan)
}

// Devices lists fingerprint readers.
func (h *Handler) Devices(c *gin.Context) {
	base := section(c) + "/devices"
	p := listParams(c)
	res, err := h.client(c).ListDevices(c.Request.Context(), p)
	if err != nil {
		if h.failed(c, err) {
			return
		}
		h.render(c, http.StatusBadGateway, "devices", page{Title: "Devices", Notice: api.Notice(err), Data: newListView(base, p, []api.Device(nil), 0, 0)})
		return
	}
	h.render(c, http.StatusOK, "devices", page{Title: "Devices", Data: newListView(base, p, res.Devices, len(res.Devices), res.Total())})
}

func (h *Handler) NewDevice(c *gin.Context) {
	base := section(c) + "/devices"
	f := forms.DeviceForm{Model: forms.DefaultModel}
	h.render(c, http.StatusOK, "device_form", page{Title: "Add Device", Data: formView{Action: base, Back: base, Create: true, Form: f}})
}

func (h *Handler) EditDevice(c *gin.Context) {
	base := section(c) + "/devices"
	d, err := h.client(c).GetDevice(c.Request.Context(), c.Param("id"))
	if err != nil {
		if h.failed(c, err) {
			return
		}
		redirectBack(c, base, flashError, api.Notice(err))
		return
	}
	h.render(c, http.StatusOK, "device_form", page{Title: "Edit Device", Data: formView{Action: base + "/" + c.Param("id"), Back: base, Form: forms.DeviceFormFrom(d)}})
}

func (h *Handler) CreateDevice(c *gin.Context) {
	if h.submitDevice(c, "").Committed {
		redirectBack(c, section(c)+"/devices", flashSuccess, "Device created successfully")
	}
}

func (h *Handler) UpdateDevice(c *gin.Context) {
	if h.submitDevice(c, c.Param("id")).Committed {
		redirectBack(c, section(c)+"/devices", flashSuccess, "Device updated successfully")
	}
}

func (h *Handler) submitDevice(c *gin.Context, id string) forms.Outcome {
	base := section(c) + "/devices"
	create := id == ""
	view := formView{Action: base, Back: base, Create: create}
	title := "Add Device"
	if !create {
		view.Action = base + "/" + id
		title = "Edit Device"
	}

	f, errs := forms.BindDevice(c)
	view.Form = f
	if errs != nil {
		h.render(c, http.StatusUnprocessableEntity, "device_form", page{Title: title, Errors: errs, Data: view})
		return forms.Outcome{}
	}

	var err error
	if create {
		err = h.client(c).CreateDevice(c.Request.Context(), f.Input(true))
	} else {
		err = h.client(c).UpdateDevice(c.Request.Context(), id, f.Input(false))
	}
	if err != nil {
		if !h.failed(c, err) {
			h.render(c, http.StatusBadGateway, "device_form", page{Title: title, Notice: api.Notice(err), Data: view})
		}
		return forms.Outcome{}
	}
	return forms.Outcome{Committed: true}
}

func (h *Handler) DeleteDevice(c *gin.Context) {
	base := section(c) + "/devices"
	if err := h.client(c).DeleteDevice(c.Request.Context(), c.Param("id")); err != nil {
		if h.failed(c, err) {
			return
		}
		redirectBack(c, base, flashError, api.Notice(err))
		return
	}
	redirectBack(c, base, flashSuccess, "Device deleted successfully")
}

// SimulateScan submits a fingerprint scan as if it came from the device.
func (h *Handler) SimulateScan(c *gin.Context) {
	base := section(c) + "/devices"
	f, errs := forms.BindScan(c)
	if errs != nil {
		redirectBack(c, base, flashError, errs.Error())
		return
	}
	res, err := h.client(c).ProcessScan(c.Request.Context(), f.Input())
	if err != nil {
		if h.failed(c, err) {
			return
		}
		redirectBack(c, base, flashError, api.Notice(err))
		return
	}
	msg := res.Message
	if msg == "" {
		msg = "Scan recorded"
	}
	redirectBack(c, base, flashSuccess, msg)
}
